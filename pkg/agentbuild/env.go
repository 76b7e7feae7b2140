package agentbuild

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/minio/highwayhash"
)

const (
	// EnvvarPath is the search-path variable which gets special treatment when merging environments
	EnvvarPath = "PATH"

	// envHashKey keys the highwayhash used to fingerprint environments. Changing it changes all fingerprints.
	envHashKey = "9b1c0e2f4a7d8c3e5f6a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60"
)

// EnvironmentMap is the environment of a child process
type EnvironmentMap map[string]string

// EnvironmentFromList parses KEY=VALUE pairs as returned by os.Environ
func EnvironmentFromList(kvs []string) EnvironmentMap {
	res := make(EnvironmentMap, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		res[k] = v
	}
	return res
}

// EnvironmentFromOS snapshots the environment of this process. This is the only place we read it.
func EnvironmentFromOS() EnvironmentMap {
	return EnvironmentFromList(os.Environ())
}

// Copy returns a shallow copy of the map. Copying a nil map yields an empty map.
func (e EnvironmentMap) Copy() EnvironmentMap {
	res := make(EnvironmentMap, len(e))
	for k, v := range e {
		res[k] = v
	}
	return res
}

// Keys returns the variable names in sorted order
func (e EnvironmentMap) Keys() []string {
	res := make([]string, 0, len(e))
	for k := range e {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// List renders the map as sorted KEY=VALUE pairs, suitable for exec.Cmd.Env
func (e EnvironmentMap) List() []string {
	res := make([]string, 0, len(e))
	for _, k := range e.Keys() {
		res = append(res, fmt.Sprintf("%s=%s", k, e[k]))
	}
	return res
}

// Hash produces a stable fingerprint of the environment
func (e EnvironmentMap) Hash() (string, error) {
	key, err := hex.DecodeString(envHashKey)
	if err != nil {
		return "", err
	}
	hash, err := highwayhash.New(key)
	if err != nil {
		return "", err
	}
	for _, kv := range e.List() {
		_, err = fmt.Fprintln(hash, kv)
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Merge combines the ambient environment with a resolved one and returns the child environment.
//
// Resolved values win over ambient ones, except for PATH: when both carry PATH the result is
// the resolved PATH followed by the ambient PATH. Neither input is modified.
func (e EnvironmentMap) Merge(ambient EnvironmentMap) EnvironmentMap {
	return MergeEnvironment(ambient, e)
}

// MergeEnvironment is the function form of EnvironmentMap.Merge
func MergeEnvironment(ambient, resolved EnvironmentMap) EnvironmentMap {
	res := resolved.Copy()
	for k, v := range ambient {
		existing, ok := res[k]
		if !ok {
			res[k] = v
			continue
		}
		if k == EnvvarPath {
			res[k] = existing + string(os.PathListSeparator) + v
		}
	}
	return res
}

// Overlay returns base with all values of over set on top, like dict.update
func Overlay(base, over EnvironmentMap) EnvironmentMap {
	res := base.Copy()
	for k, v := range over {
		res[k] = v
	}
	return res
}
