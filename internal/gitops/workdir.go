package gitops

import (
	"os"
	"path/filepath"
	"strings"
)

// Marker files executors leave at the workdir root.
const (
	// AskMarkerFile signals a clarification request from the coder.
	AskMarkerFile = ".warp-coder-ask"

	// ReviewMarkerFile carries a structured review verdict.
	ReviewMarkerFile = ".warp-coder-review"
)

// WorkdirRoot returns the per-issue workdir root. Workdirs are per-issue
// so concurrent executors never collide.
func WorkdirRoot(issueID string) string {
	return filepath.Join(os.TempDir(), "warp-coder", issueID)
}

// RepoDirs maps each repo URL to its directory name under the workdir
// root: the repo basename, or owner-name when basenames collide.
func RepoDirs(repoURLs []string) map[string]string {
	base := make(map[string][]string, len(repoURLs))
	for _, u := range repoURLs {
		name := repoBasename(u)
		base[name] = append(base[name], u)
	}

	out := make(map[string]string, len(repoURLs))
	for name, urls := range base {
		if len(urls) == 1 {
			out[urls[0]] = name
			continue
		}
		for _, u := range urls {
			out[u] = ownerName(u)
		}
	}
	return out
}

// RepoWorkdir returns the checkout directory for one repo of one issue.
func RepoWorkdir(issueID, repoURL string, all []string) string {
	dirs := RepoDirs(all)
	dir, ok := dirs[repoURL]
	if !ok {
		dir = repoBasename(repoURL)
	}
	return filepath.Join(WorkdirRoot(issueID), dir)
}

func repoBasename(repoURL string) string {
	trimmed := strings.TrimSuffix(repoURL, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")
	idx := strings.LastIndexAny(trimmed, "/:")
	if idx == -1 {
		return trimmed
	}
	return trimmed[idx+1:]
}

func ownerName(repoURL string) string {
	trimmed := strings.TrimSuffix(repoURL, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == ':' })
	if len(parts) < 2 {
		return repoBasename(repoURL)
	}
	return parts[len(parts)-2] + "-" + parts[len(parts)-1]
}
