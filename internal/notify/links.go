package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Links builds URLs for notifications and emails from an explicit public
// base URL and mount path.
type Links struct {
	BaseURL  string
	BasePath string
}

// Path prefixes p with the mount path.
func (l Links) Path(p string) string {
	return strings.TrimRight(l.BasePath, "/") + p
}

// Absolute returns the public URL of p, or the mounted path when no base
// URL is configured.
func (l Links) Absolute(p string) string {
	if l.BaseURL == "" {
		return l.Path(p)
	}
	return strings.TrimRight(l.BaseURL, "/") + l.Path(p)
}

// ResultsPath is the student's result page for an attempt.
func ResultsPath(courseID, examID, attemptID int64) string {
	return fmt.Sprintf("/courses/%d/exams/%d/results/%d", courseID, examID, attemptID)
}

// CertificatePath is the certificate page of a completion.
func CertificatePath(completionID int64) string {
	return fmt.Sprintf("/certificates/%d", completionID)
}

// CoursePath is the student's exam list for a course.
func CoursePath(courseID int64) string {
	return fmt.Sprintf("/courses/%d/exams", courseID)
}

// ParseResultsLink extracts the exam ID from a link produced by
// ResultsPath, with or without host and mount path.
func ParseResultsLink(link string) (examID int64, ok bool) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+5 < len(parts); i++ {
		if parts[i] == "courses" && parts[i+2] == "exams" && parts[i+4] == "results" {
			id, err := strconv.ParseInt(parts[i+3], 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		}
	}
	return 0, false
}

// ParseCertificateLink extracts the completion ID from a link produced by
// CertificatePath.
func ParseCertificateLink(link string) (completionID int64, ok bool) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := len(parts)
	if n < 2 || parts[n-2] != "certificates" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[n-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
