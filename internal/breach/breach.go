// Package breach checks password candidates against a range-based
// breach-hash service using k-anonymity: only the first five hex
// characters of the SHA-1 digest ever leave the process.
package breach

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultRangeURL is the public range endpoint of the breach service.
const DefaultRangeURL = "https://api.pwnedpasswords.com/range/"

// minCandidateLength is the shortest candidate worth checking. Anything
// below it short-circuits to a neutral result with no network call.
const minCandidateLength = 4

// Severity tiers for an exposure count.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityFor maps an exposure count to a tier.
func severityFor(count int) Severity {
	switch {
	case count > 100000:
		return SeverityCritical
	case count > 10000:
		return SeverityHigh
	case count > 1000:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Result is the advisory outcome of one breach check.
type Result struct {
	Pwned    bool     `json:"pwned"`
	Count    int      `json:"count"`
	Severity Severity `json:"severity,omitempty"`
	Message  string   `json:"message,omitempty"`

	// Err is set when the lookup itself failed. Callers must treat such
	// a result as unknown, never as "not breached".
	Err error `json:"-"`
}

// Unknown reports whether the check failed to produce a verdict.
func (r Result) Unknown() bool { return r.Err != nil }

// Advisor queries the range service.
type Advisor struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

// NewAdvisor constructs an Advisor. client and log may be nil, in which
// case http.DefaultClient and a no-op logger are used; baseURL defaults
// to DefaultRangeURL.
func NewAdvisor(client *http.Client, baseURL string, log *zap.Logger) *Advisor {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultRangeURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Advisor{client: client, baseURL: baseURL, log: log}
}

// Check looks the candidate up in the breach corpus. Candidates shorter
// than four characters return a zero Result without touching the network.
func (a *Advisor) Check(ctx context.Context, password string) Result {
	if len(password) < minCandidateLength {
		return Result{}
	}

	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:5], digest[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+prefix, nil)
	if err != nil {
		return Result{Err: err}
	}
	// Opt in to response padding so the range size leaks nothing.
	req.Header.Set("Add-Padding", "true")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Debug("breach lookup failed", zap.Error(err))
		return Result{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("breach service returned status %d", resp.StatusCode)
		a.log.Debug("breach lookup failed", zap.Error(err))
		return Result{Err: err}
	}

	count, err := scanRange(resp, suffix)
	if err != nil {
		a.log.Debug("breach response scan failed", zap.Error(err))
		return Result{Err: err}
	}
	if count == 0 {
		return Result{}
	}

	sev := severityFor(count)
	return Result{
		Pwned:    true,
		Count:    count,
		Severity: sev,
		Message:  fmt.Sprintf("this password appears in %d known breaches (%s risk)", count, sev),
	}
}

// scanRange walks the newline-delimited SUFFIX:COUNT body looking for the
// local hash remainder. Comparison is case-insensitive hex; padding rows
// with a zero count are skipped naturally.
func scanRange(resp *http.Response, suffix string) (int, error) {
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, count, ok := splitRangeLine(line)
		if !ok {
			continue
		}
		if strings.EqualFold(rest, suffix) {
			return count, nil
		}
	}
	return 0, scanner.Err()
}

func splitRangeLine(line string) (suffix string, count int, ok bool) {
	suffix, countStr, found := strings.Cut(line, ":")
	if !found {
		return "", 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count <= 0 {
		return "", 0, false
	}
	return suffix, count, true
}
