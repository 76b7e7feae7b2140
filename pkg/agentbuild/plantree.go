package agentbuild

import (
	"fmt"

	"github.com/disiqueira/gotree"
)

func addCommandNode(parent gotree.Tree, name string, rc RenderedCommand) {
	n := parent.Add(name)
	n.Add(rc.Command)
	if rc.Dir != "" {
		n.Add("in " + rc.Dir)
	}
}

func addListNode(parent gotree.Tree, name string, items []string) {
	if len(items) == 0 {
		return
	}
	n := parent.Add(name)
	for _, i := range items {
		n.Add(i)
	}
}

// Tree lists what the build would run
func (p *BuildPlan) Tree() gotree.Tree {
	tree := gotree.New(TaskBuild)

	req := p.Request
	tree.Add(fmt.Sprintf("arch: %s, major version: %s, race: %v, incremental: %v", req.Arch, req.MajorVersion, req.Race, req.Incremental))

	addListNode(tree, "tags", p.Tags)
	lvs := make([]string, 0, len(p.LinkVars))
	for _, lv := range p.LinkVars {
		lvs = append(lvs, lv.Key+"="+lv.Value)
	}
	addListNode(tree, "link variables", lvs)
	addListNode(tree, "flag environment", p.Flags.Env.List())
	addListNode(tree, "toolchain", p.ToolchainEnv.List())
	tree.Add("environment " + p.EnvHash)

	addCommandNode(tree, TaskGenerate, p.Generate)
	addCommandNode(tree, "compile", p.Compile)
	return tree
}

// Tree lists what mock generation would run
func (p *MockPlan) Tree() gotree.Tree {
	tree := gotree.New(TaskGenMocks)
	tree.Add("GOPATH " + p.GoPath)
	if p.ToolInstalled || p.Install == nil {
		tree.Add("found " + p.ToolPath)
	} else {
		addCommandNode(tree, "install", *p.Install)
	}
	addCommandNode(tree, TaskGenerate, p.Generate)
	return tree
}

// Tree lists what the functional test run would execute
func (p *FunctionalTestPlan) Tree() gotree.Tree {
	tree := gotree.New(TaskFunctionalTests)
	addListNode(tree, "tags", p.Tags)
	addListNode(tree, "toolchain", p.ToolchainEnv.List())
	tree.Add("environment " + p.EnvHash)
	addCommandNode(tree, "test", p.Test)
	return tree
}
