package prompt

import (
	"regexp"
)

// Placeholder replaces every credential found by Redact.
const Placeholder = "[REDACTED]"

// Secret detectors. Submitted text is forwarded to a third party, so
// anything that looks like a live credential is masked first.
var detectors = []struct {
	name string
	re   *regexp.Regexp
}{
	{"private key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
	{"aws access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws secret", regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*["']?[A-Za-z0-9/+=]{20,}`)},
	{"github token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`)},
	{"github pat", regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`)},
	{"google api key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{"slack token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`)},
	{"stripe key", regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`)},
	{"openai key", regexp.MustCompile(`sk-[A-Za-z0-9\-_]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9\-_]{5,}\.eyJ[A-Za-z0-9\-_]{5,}\.[A-Za-z0-9\-_]{10,}`)},
	{"bearer token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-\._~\+\/]{16,}=*`)},
	{"url credentials", regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`)},
}

// Redact masks credentials in text and returns the names of the detectors that fired.
func Redact(text string) (string, []string) {
	var hits []string
	for _, d := range detectors {
		if !d.re.MatchString(text) {
			continue
		}
		hits = append(hits, d.name)
		if d.name == "url credentials" {
			text = d.re.ReplaceAllString(text, "://"+Placeholder+"@")
			continue
		}
		text = d.re.ReplaceAllString(text, Placeholder)
	}
	return text, hits
}
