package nodelog

import (
	"maps"
	"slices"
	"strings"
)

// RankEnv is the environment variable holding the node rank.
const RankEnv = "NODE_RANK"

// UnknownRank is the rank used when RankEnv is unset or empty.
const UnknownRank = "unknown"

// ProcessEnv holds the variables exported for child processes so their output is unbuffered
// and crashes dump every goroutine/thread stack.
var ProcessEnv = map[string]string{
	"PYTHONUNBUFFERED":   "1",
	"PYTHONFAULTHANDLER": "1",
	"GOTRACEBACK":        "all",
}

// Node is the process-wide identity used in log lines, printer prefixes and the log file name.
type Node struct {
	Rank string
}

// ReadNode reads the node rank with lookup (e.g. os.LookupEnv).
func ReadNode(lookup func(string) (string, bool)) Node {
	if lookup != nil {
		if v, ok := lookup(RankEnv); ok && strings.TrimSpace(v) != "" {
			return Node{Rank: strings.TrimSpace(v)}
		}
	}
	return Node{Rank: UnknownRank}
}

// Tag returns "NODE_<rank>".
func (n Node) Tag() string { return "NODE_" + n.Rank }

// Environ returns base with ProcessEnv applied: existing keys are overridden, missing ones appended
// in sorted order. Use it for exec.Cmd.Env.
func Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(ProcessEnv))
	seen := make(map[string]bool, len(ProcessEnv))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if v, ok := ProcessEnv[k]; ok {
			out = append(out, k+"="+v)
			seen[k] = true
			continue
		}
		out = append(out, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(ProcessEnv)) {
		if !seen[k] {
			out = append(out, k+"="+ProcessEnv[k])
		}
	}
	return out
}

// applyEnv exports ProcessEnv through setenv in sorted order.
func applyEnv(setenv func(key, value string) error) error {
	for _, k := range slices.Sorted(maps.Keys(ProcessEnv)) {
		if err := setenv(k, ProcessEnv[k]); err != nil {
			return err
		}
	}
	return nil
}
