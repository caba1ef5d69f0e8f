// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package doctor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/log"
)

// Check represents a doctor check
type Check struct {
	Title     string
	Name      string
	IsDefault bool
	Run       func(ctx context.Context, logger log.Logger, autofix bool) error
	Priority  int
}

var checks []*Check

// Register registers a check, names are unique
func Register(command *Check) {
	for _, c := range checks {
		if c.Name == command.Name {
			panic(fmt.Sprintf("doctor check %q registered twice", command.Name))
		}
	}
	checks = append(checks, command)
	sort.SliceStable(checks, func(i, j int) bool {
		if checks[i].Priority == checks[j].Priority {
			return checks[i].Name < checks[j].Name
		}
		return checks[i].Priority < checks[j].Priority
	})
}

// Checks returns the registered checks ordered by priority
func Checks() []*Check {
	return checks
}

// GetChecks returns the checks named, unknown names are an error
func GetChecks(names []string) ([]*Check, error) {
	var selected []*Check
	var unknown []string
	for _, name := range names {
		found := false
		for _, c := range checks {
			if c.Name == name {
				selected = append(selected, c)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown checks: %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

// DefaultChecks returns the checks run when none is named
func DefaultChecks() []*Check {
	var selected []*Check
	for _, c := range checks {
		if c.IsDefault {
			selected = append(selected, c)
		}
	}
	return selected
}

// RunChecks runs the given checks, a failing check does not stop the next ones
func RunChecks(ctx context.Context, logger log.Logger, autofix bool, checks []*Check) error {
	failed := 0
	for i, check := range checks {
		logger.Info("[%d] %s", i+1, check.Title)
		if err := check.Run(ctx, logger, autofix); err != nil {
			failed++
			logger.Error("check %s failed: %v", check.Name, err)
			continue
		}
		logger.Info("OK")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

var errDryRun = errors.New("dry run")

// inspect runs fix in a transaction that is only committed with autofix, fix returns the number of problems
func inspect(ctx context.Context, autofix bool, fix func(ctx context.Context) (int, error)) (int, error) {
	var count int
	err := db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if count, err = fix(ctx); err != nil {
			return err
		}
		if !autofix {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	return count, err
}

// report logs the outcome of a check, problems left unfixed fail it
func report(logger log.Logger, autofix bool, count int, what string) error {
	switch {
	case count == 0:
		return nil
	case autofix:
		logger.Warn("fixed %d %s", count, what)
		return nil
	default:
		logger.Warn("found %d %s, run with --fix to repair them", count, what)
		return fmt.Errorf("%d %s", count, what)
	}
}
