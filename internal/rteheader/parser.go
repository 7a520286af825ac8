package rteheader

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	ifndefRe = regexp.MustCompile(`^#ifndef\s+` + Guard + `$`)
	defineRe = regexp.MustCompile(`^#define\s+` + Guard + `$`)
	endifRe  = regexp.MustCompile(`^#endif\b`)
)

// Parse reads a generated header back into its define lines, in file order.
func Parse(r io.Reader) ([]string, error) {
	var lines []string
	var inGuard, guarded bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case ifndefRe.MatchString(line):
			guarded = true
			continue
		case guarded && !inGuard && defineRe.MatchString(line):
			inGuard = true
			continue
		case inGuard && endifRe.MatchString(line):
			inGuard = false
			continue
		}

		if inGuard {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !guarded {
		return nil, fmt.Errorf("header has no %s include guard", Guard)
	}
	return lines, nil
}
