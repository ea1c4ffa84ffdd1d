package ingest

import (
	"errors"
	"regexp"
	"strings"
)

func init() {
	Register(FormatTextDelimited, ParserFunc(parseText))
}

// separator is the field delimiter detected in a text export.
type separator int

const (
	sepNone separator = iota
	sepTab
	sepPipe
	sepComma
	sepSpaces
)

var (
	spaceRun      = regexp.MustCompile(` {3,}`)
	separatorLine = regexp.MustCompile(`^[\s\-=_]+$`)
)

func (s separator) String() string {
	switch s {
	case sepTab:
		return "tab"
	case sepPipe:
		return "|"
	case sepComma:
		return ","
	case sepSpaces:
		return "spaces"
	default:
		return "none"
	}
}

func (s separator) split(line string) []string {
	switch s {
	case sepTab:
		return strings.Split(line, "\t")
	case sepPipe:
		return strings.Split(line, "|")
	case sepComma:
		return strings.Split(line, ",")
	case sepSpaces:
		return spaceRun.Split(strings.TrimSpace(line), -1)
	default:
		return []string{line}
	}
}

// detectSeparator tests tab, pipe, comma (at least 5) and space runs in
// that order.
func detectSeparator(line string) separator {
	switch {
	case strings.Contains(line, "\t"):
		return sepTab
	case strings.Contains(line, "|"):
		return sepPipe
	case strings.Count(line, ",") >= 5:
		return sepComma
	case spaceRun.MatchString(line):
		return sepSpaces
	default:
		return sepNone
	}
}

func parseText(path, _ string) (Result, error) {
	res := newResult(FormatTextDelimited, LabelText)

	content, enc, err := ReadText(path)
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			res.fail("could not decode file: %v", decErr)
			return res, nil
		}
		return res, err
	}
	res.Detail["encoding"] = enc

	lines := nonBlankLines(content)
	if len(lines) == 0 {
		res.fail(MsgFileEmpty)
		return res, nil
	}

	headerIdx := findHeaderLine(lines)
	start := 0
	if headerIdx >= 0 {
		start = headerIdx + 1
	}

	sep := detectSeparator(firstDataLine(lines[start:]))
	count, samples := countRecords(lines[start:], sep)

	res.RecordCount = count
	res.Detail["header_found"] = headerIdx >= 0
	res.Detail["separator"] = sep.String()
	res.Detail["samples"] = samples

	if headerIdx >= 0 {
		res.Detail["header_line"] = headerIdx + 1
		matches := countContained(lines[headerIdx], StandardColumns[:headerCheckColumns])
		res.Detail["header_matches"] = matches
		if matches < headerCheckMinMatches {
			res.fail("non-standard structure: header matches %d of %d expected columns",
				matches, headerCheckColumns)
		}
	}

	return res, nil
}

func nonBlankLines(content string) []string {
	var lines []string
	for _, line := range splitLines(content) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// findHeaderLine returns the index of the first line within the search
// window that looks like a column header, or -1.
func findHeaderLine(lines []string) int {
	limit := min(len(lines), headerSearchLines)
	for i := 0; i < limit; i++ {
		if countContained(lines[i], StandardColumns) >= headerMinKeywords ||
			countContained(lines[i], coreHeaderKeywords) == len(coreHeaderKeywords) {
			return i
		}
	}
	return -1
}

func firstDataLine(lines []string) string {
	for _, line := range lines {
		if !skipLine(line) {
			return line
		}
	}
	return ""
}

// skipLine reports separator rules and report banners.
func skipLine(line string) bool {
	if separatorLine.MatchString(line) {
		return true
	}
	return countContained(line, bannerKeywords) > 0
}

func countRecords(lines []string, sep separator) (int, [][]string) {
	count := 0
	samples := [][]string{}

	for _, line := range lines {
		if skipLine(line) {
			continue
		}

		fields := sep.split(line)
		if sep != sepNone && len(fields) < minRecordFields {
			continue
		}

		count++
		if len(samples) < maxSampleRows {
			samples = append(samples, sampleFields(fields))
		}
	}

	return count, samples
}

func sampleFields(fields []string) []string {
	n := min(len(fields), maxSampleFields)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = strings.TrimSpace(fields[i])
	}
	return out
}
