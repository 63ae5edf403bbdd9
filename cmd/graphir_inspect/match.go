// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/matcher"
	"github.com/gomlx/graphir/types/xslices"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// matchReport loads the pattern graph at patternPath and reports the op
// pairings of its matches in subject.
func matchReport(subject *graph.Graph, patternPath string) error {
	f, err := os.Open(patternPath)
	if err != nil {
		return errors.Wrapf(err, "opening pattern file %q", patternPath)
	}
	pattern, err := graph.Decode(f)
	_ = f.Close()
	if err != nil {
		return errors.WithMessagef(err, "decoding pattern from %q", patternPath)
	}

	registry := matcher.NewRegistry()
	if err := registerAssociations(registry, *flagAssoc); err != nil {
		return err
	}
	m, err := matcher.NewMatcher(pattern, registry)
	if err != nil {
		return errors.WithMessage(err, "building matcher")
	}
	matches, err := runMatch(m, subject)
	if err != nil {
		return errors.WithMessage(err, "matching")
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Matches: %s", humanize.Comma(int64(len(matches))))))
	if len(matches) == 0 {
		return nil
	}
	table := newPlainTable(lipgloss.Right, lipgloss.Left, lipgloss.Left)
	table.Headers("#", "Pattern Op", "Subject Op")
	for i, match := range matches {
		for _, name := range xslices.SortedKeys(match.PatternToSubjectOps) {
			table.Row(strconv.Itoa(i+1), name, match.PatternToSubjectOps[name].Name())
		}
	}
	fmt.Println(table.Render())
	return nil
}

// runMatch enumerates matches, spinning a progress indicator on stderr while
// the search runs.
func runMatch(m *matcher.Matcher, subject *graph.Graph) ([]*matcher.Match, error) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("matching"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = spinner.Add(1)
			}
		}
	}()

	var matches []*matcher.Match
	var err error
	if *flagMaxMatches > 0 {
		matches, err = m.Match(subject, *flagMaxMatches)
	} else {
		matches, err = m.MatchAll(subject)
	}
	close(done)
	wg.Wait()
	_ = spinner.Finish()
	return matches, err
}

// registerAssociations parses -assoc entries, separated by ';', and registers
// each with the registry. See parseAssociation for the entry format.
func registerAssociations(registry *matcher.Registry, entries string) error {
	for _, entry := range strings.Split(entries, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		opType, perms, err := parseAssociation(entry)
		if err != nil {
			return err
		}
		if err := registry.RegisterAssociative(opType, perms...); err != nil {
			return errors.WithMessagef(err, "association %q", entry)
		}
	}
	return nil
}

// parseAssociation parses one -assoc entry, "<op type>:<perm>[:<perm>...]",
// a perm being comma-separated input positions, e.g. "Add:0,1:1,0".
func parseAssociation(entry string) (opType string, perms [][]int, err error) {
	parts := strings.Split(entry, ":")
	if len(parts) < 2 {
		return "", nil, errors.Wrapf(graph.ErrValidation,
			"association %q: want <op type>:<perm>[:<perm>...]", entry)
	}
	opType = strings.TrimSpace(parts[0])
	perms = make([][]int, 0, len(parts)-1)
	for _, part := range parts[1:] {
		fields := strings.Split(part, ",")
		perm := make([]int, 0, len(fields))
		for _, field := range fields {
			pos, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return "", nil, errors.Wrapf(graph.ErrValidation,
					"association %q: input position %q is not a number", entry, field)
			}
			perm = append(perm, pos)
		}
		perms = append(perms, perm)
	}
	return opType, perms, nil
}
