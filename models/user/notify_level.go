// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package user

import (
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// NotifyLevel decides which changes of a project a user is told about
type NotifyLevel int

const (
	// NotifyAllOwnedProjects notifies every change of the projects the user belongs to
	NotifyAllOwnedProjects NotifyLevel = iota + 1
	// NotifyOnlyWatching notifies changes of the items the user watches
	NotifyOnlyWatching
	// NotifyOnlyAssigned notifies changes of the items assigned to the user
	NotifyOnlyAssigned
	// NotifyOnlyOwner notifies changes of the items the user owns
	NotifyOnlyOwner
	// NotifyNoEvents disables notifications
	NotifyNoEvents
)

var notifyLevelNames = map[NotifyLevel]string{
	NotifyAllOwnedProjects: "all_owned_projects",
	NotifyOnlyWatching:     "only_watching",
	NotifyOnlyAssigned:     "only_assigned",
	NotifyOnlyOwner:        "only_owner",
	NotifyNoEvents:         "no_events",
}

func (l NotifyLevel) String() string {
	if name, ok := notifyLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("NotifyLevel(%d)", int(l))
}

// ParseNotifyLevel parses the name of a notify level
func ParseNotifyLevel(s string) (NotifyLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range notifyLevelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, util.NewInvalidArgumentErrorf("unknown notify level %q", s)
}
