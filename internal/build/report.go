package build

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Class categorizes a build issue for reporting and exit-code policy.
type Class string

const (
	ClassFrontmatter  Class = "frontmatter"
	ClassValidation   Class = "validation"
	ClassDuplicateURL Class = "duplicate-url"
	ClassRender       Class = "render"
	ClassIO           Class = "io"
)

// Issue is one reported problem, attributed to a source file.
type Issue struct {
	Path    string `json:"path"`
	Class   Class  `json:"class"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Report aggregates the outcome of one pipeline run.
type Report struct {
	Issues   []Issue       `json:"issues"`
	Built    int           `json:"built"`
	Reused   int           `json:"reused"`
	Skipped  int           `json:"skipped"`
	Drafts   int           `json:"drafts"`
	Duration time.Duration `json:"duration"`
}

func (r *Report) add(path string, class Class, fatal bool, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Path:    path,
		Class:   class,
		Message: fmt.Sprintf(format, args...),
		Fatal:   fatal,
	})
}

// Fatal reports whether any issue should fail the build (non-zero exit).
func (r *Report) Fatal() bool {
	for _, i := range r.Issues {
		if i.Fatal {
			return true
		}
	}
	return false
}

// Summary renders the issues grouped by file, followed by build counters.
func (r *Report) Summary() string {
	var b strings.Builder

	byFile := make(map[string][]Issue)
	for _, i := range r.Issues {
		byFile[i.Path] = append(byFile[i.Path], i)
	}
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		fmt.Fprintf(&b, "%s\n", p)
		for _, i := range byFile[p] {
			level := "warning"
			if i.Fatal {
				level = "error"
			}
			fmt.Fprintf(&b, "  [%s] %s: %s\n", level, i.Class, i.Message)
		}
	}

	fmt.Fprintf(&b, "built %d, reused %d, skipped %d, drafts %d, issues %d in %s\n",
		r.Built, r.Reused, r.Skipped, r.Drafts, len(r.Issues), r.Duration.Round(time.Millisecond))
	return b.String()
}
