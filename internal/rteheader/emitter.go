package rteheader

import (
	"fmt"
	"io"
	"strings"
)

// Guard is the include-guard macro of the generated header.
const Guard = "RTE_COMPONENTS_H"

const banner = `/*
 * Auto generated Run-Time-Environment Component Configuration File
 *      *** Do not modify ! ***
 *
 * Project: '%s'
 */
`

// Emitter writes the generated header.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new header emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the banner, the include guard and every define line of entries
// in registry order. Blank lines and lines already written are skipped.
func (e *Emitter) Emit(project string, entries []Entry) error {
	if _, err := fmt.Fprintf(e.w, banner, project); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "\n#ifndef %s\n#define %s\n\n", Guard, Guard); err != nil {
		return err
	}

	for _, line := range defineLines(entries) {
		if _, err := fmt.Fprintln(e.w, line); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(e.w, "\n#endif /* %s */\n", Guard); err != nil {
		return err
	}
	return nil
}

func defineLines(entries []Entry) []string {
	seen := make(map[string]bool)
	var lines []string
	for _, en := range entries {
		for _, line := range strings.Split(en.Define, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines
}
