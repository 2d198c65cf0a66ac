package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmespath/go-jmespath"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/fits"
)

// Formatter formats results for output.
type Formatter interface {
	FormatIndex(w io.Writer, index *astrocloud.Index) error
	FormatCacheList(w io.Writer, summaries []astrocloud.IndexSummary) error
	FormatForget(w io.Writer, url string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
// A non-empty query implies JSON output filtered through the JMESPath expression.
func NewFormatter(jsonOutput, quiet bool, query string) (Formatter, error) {
	if query != "" {
		compiled, err := jmespath.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("compile query: %w", err)
		}
		return &JSONFormatter{Query: compiled}, nil
	}
	if jsonOutput {
		return &JSONFormatter{}, nil
	}
	return &HumanFormatter{Quiet: quiet}, nil
}

// HeaderRow is the tabular summary of one header.
type HeaderRow struct {
	Position   int    `json:"position"`
	Kind       string `json:"kind"`
	Offset     int64  `json:"offset"`
	Length     int64  `json:"length"`
	DataOffset int64  `json:"data_offset"`
	Cards      int    `json:"cards"`
}

// Rows summarises the records of index.
func Rows(index *astrocloud.Index) []HeaderRow {
	rows := make([]HeaderRow, 0, len(index.Records))
	for i, rec := range index.Records {
		row := HeaderRow{
			Position:   i,
			Kind:       "UNKNOWN",
			Offset:     rec.Offset,
			Length:     rec.Length,
			DataOffset: rec.End(),
		}
		if rec.Header != nil {
			row.Kind = fits.Kind(rec.Header)
			row.Cards = rec.Header.Len()
		}
		rows = append(rows, row)
	}
	return rows
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatIndex formats an index as a table of headers.
func (f *HumanFormatter) FormatIndex(w io.Writer, index *astrocloud.Index) error {
	rows := Rows(index)

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "%3s  %-10s  %12s  %10s  %12s  %5s\n", "#", "KIND", "OFFSET", "LENGTH", "DATA", "CARDS")
		_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s\n",
			strings.Repeat("-", 3), strings.Repeat("-", 10), strings.Repeat("-", 12),
			strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 5))
	}

	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%3d  %-10s  %12d  %10d  %12d  %5d\n",
			r.Position, r.Kind, r.Offset, r.Length, r.DataOffset, r.Cards)
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d header(s) in %s (%s)\n", len(rows), index.URL, index.State)
	}
	return nil
}

// FormatCacheList formats cached indexes as human-readable text.
func (f *HumanFormatter) FormatCacheList(w io.Writer, summaries []astrocloud.IndexSummary) error {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(w, "No cached indexes")
		return nil
	}

	maxURLLen := 3 // "URL"
	for i := range summaries {
		if len(summaries[i].URL) > maxURLLen {
			maxURLLen = len(summaries[i].URL)
		}
	}
	if maxURLLen > 80 {
		maxURLLen = 80
	}

	_, _ = fmt.Fprintf(w, "%-*s  %7s  %s\n", maxURLLen, "URL", "HEADERS", "CACHED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxURLLen), strings.Repeat("-", 7), strings.Repeat("-", 19))

	for i := range summaries {
		s := &summaries[i]
		url := s.URL
		if len(url) > maxURLLen {
			url = url[:maxURLLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %7d  %s\n", maxURLLen, url, s.Headers, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// FormatForget confirms a cache deletion.
func (f *HumanFormatter) FormatForget(w io.Writer, url string) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Forgot: %s\n", url)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	maxNameLen := 4 // "NAME"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}

	_, _ = fmt.Fprintf(w, "  %-*s  %-12s  %-12s  %s\n", maxNameLen, "NAME", "AWS PROFILE", "REGION", "ACCESS KEY")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 12), strings.Repeat("-", 12), strings.Repeat("-", 20))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-12s  %-12s  %s\n",
			marker, maxNameLen, name, orDash(p.AWSProfile), orDash(p.Region), maskSecret(p.AccessKey, showSecrets))
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:          %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "AWS Profile:   %s\n", orDash(profile.AWSProfile))
	_, _ = fmt.Fprintf(w, "Region:        %s\n", orDash(profile.Region))
	_, _ = fmt.Fprintf(w, "Access Key:    %s\n", maskSecret(profile.AccessKey, showSecrets))
	_, _ = fmt.Fprintf(w, "Secret Key:    %s\n", maskSecret(profile.SecretKey, showSecrets))
	_, _ = fmt.Fprintf(w, "Session Token: %s\n", maskSecret(profile.SessionToken, showSecrets))
	return nil
}

// JSONFormatter outputs JSON, optionally filtered by a JMESPath query.
type JSONFormatter struct {
	Query *jmespath.JMESPath
}

// FormatIndex formats the full index, parsed cards included, as JSON.
func (f *JSONFormatter) FormatIndex(w io.Writer, index *astrocloud.Index) error {
	return f.write(w, index)
}

// FormatCacheList formats cached indexes as JSON.
func (f *JSONFormatter) FormatCacheList(w io.Writer, summaries []astrocloud.IndexSummary) error {
	if summaries == nil {
		summaries = []astrocloud.IndexSummary{}
	}
	return f.write(w, struct {
		Indexes []astrocloud.IndexSummary `json:"indexes"`
	}{Indexes: summaries})
}

// FormatForget formats a cache deletion as JSON.
func (f *JSONFormatter) FormatForget(w io.Writer, url string) error {
	return f.write(w, struct {
		URL     string `json:"url"`
		Deleted bool   `json:"deleted"`
	}{URL: url, Deleted: true})
}

// FormatError formats an error as JSON. The query is not applied.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		output.Profiles[i] = newJSONProfile(profiles[i], profiles[i].Name == defaultName, showSecrets)
	}

	return f.write(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	return f.write(w, newJSONProfile(profile, isDefault, showSecrets))
}

type jsonProfile struct {
	Name         string `json:"name"`
	AWSProfile   string `json:"aws_profile,omitempty"`
	Region       string `json:"region,omitempty"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	SessionToken string `json:"session_token,omitempty"`
	Default      bool   `json:"default"`
}

func newJSONProfile(p Profile, isDefault, showSecrets bool) jsonProfile {
	jp := jsonProfile{
		Name:       p.Name,
		AWSProfile: p.AWSProfile,
		Region:     p.Region,
		AccessKey:  maskSecret(p.AccessKey, showSecrets),
		SecretKey:  maskSecret(p.SecretKey, showSecrets),
		Default:    isDefault,
	}
	if p.SessionToken != "" {
		jp.SessionToken = maskSecret(p.SessionToken, showSecrets)
	}
	return jp
}

func (f *JSONFormatter) write(w io.Writer, v any) error {
	if f.Query == nil {
		return writeJSON(w, v)
	}

	// JMESPath walks generic maps, so round-trip through JSON to apply tags.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal output: %w", err)
	}

	result, err := f.Query.Search(data)
	if err != nil {
		return fmt.Errorf("apply query: %w", err)
	}
	return writeJSON(w, result)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
