// Package buildinfo identifies the harness build in banners and titles.
package buildinfo

// Set at link time with -ldflags "-X wcet/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, else the commit, else "dev".
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Describe returns "wcet <short> (<commit>, <date>)", dropping unknown parts.
func Describe() string {
	s := "wcet " + Short()
	var extra string
	if Commit != "" && Commit != "unknown" && Commit != Short() {
		extra = Commit
	}
	if Date != "" && Date != "unknown" {
		if extra != "" {
			extra += ", "
		}
		extra += Date
	}
	if extra != "" {
		s += " (" + extra + ")"
	}
	return s
}
