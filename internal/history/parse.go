package history

import (
	"regexp"
	"strconv"
	"strings"
)

// zsh EXTENDED_HISTORY lines look like ": 1609459200:0;git status".
// Plain lines appear when the option is off.
var zshExtendedRe = regexp.MustCompile(`^:\s*(\d+):(\d+);(.*)$`)

// ParseZsh parses zsh history, accepting both extended and plain lines.
// Multiline commands continue on lines ending with a backslash.
func ParseZsh(data string) []Entry {
	var entries []Entry
	lines := strings.Split(data, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		var ts *int64
		var cmd string
		if m := zshExtendedRe.FindStringSubmatch(line); m != nil {
			if sec, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				ts = &sec
			}
			cmd = m[3]
		} else {
			cmd = line
		}

		// join backslash continuations
		for strings.HasSuffix(cmd, "\\") && i+1 < len(lines) {
			i++
			cmd = strings.TrimSuffix(cmd, "\\") + "\n" + lines[i]
		}

		entries = append(entries, Entry{Command: cmd, Timestamp: ts})
	}

	return dropEmpty(entries)
}

var bashTimestampRe = regexp.MustCompile(`^#(\d+)$`)

// ParseBash parses bash history. A "#<epoch>" comment line sets the
// timestamp for the single command that follows it.
func ParseBash(data string) []Entry {
	var entries []Entry
	var pending *int64

	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := bashTimestampRe.FindStringSubmatch(line); m != nil {
			if sec, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				pending = &sec
			}
			continue
		}

		entries = append(entries, Entry{Command: line, Timestamp: pending})
		pending = nil
	}

	return dropEmpty(entries)
}

// ParseFish parses fish's history file, which stores entries as
//
//	- cmd: git status
//	  when: 1609459200
//
// Multiline commands use "- cmd: |" with the body indented.
func ParseFish(data string) []Entry {
	var entries []Entry
	var cmd string
	var cmdSet bool
	var ts *int64

	flush := func() {
		if cmdSet {
			entries = append(entries, Entry{Command: strings.TrimRight(cmd, "\n"), Timestamp: ts})
		}
		cmd = ""
		cmdSet = false
		ts = nil
	}

	lines := strings.Split(data, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if rest, ok := strings.CutPrefix(line, "- cmd:"); ok {
			flush()
			cmdSet = true
			rest = strings.TrimSpace(rest)
			if rest == "|" {
				// indented block scalar, continuation lines carry at
				// least two spaces of indentation
				var body []string
				for i+1 < len(lines) && strings.HasPrefix(lines[i+1], "  ") && !strings.HasPrefix(strings.TrimSpace(lines[i+1]), "when:") {
					i++
					body = append(body, strings.TrimLeft(lines[i], " \t"))
				}
				cmd = strings.Join(body, "\n")
			} else {
				cmd = unescapeFish(rest)
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "when:"); ok && cmdSet {
			if sec, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
				ts = &sec
			}
		}
	}
	flush()

	return dropEmpty(entries)
}

// fish escapes backslashes and newlines in single-line cmd values
func unescapeFish(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}
