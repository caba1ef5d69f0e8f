// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"hash/fnv"
	"maps"

	"github.com/taigaio/taiga-back-sub001/models/db"
)

// tagPalette is the color scale handed out to new tags
var tagPalette = []string{
	"#fce94f", "#edd400", "#c4a000", "#8ae234", "#73d216", "#4e9a06",
	"#d3d7cf", "#fcaf3e", "#f57900", "#ce5c00", "#729fcf", "#3465a4",
	"#204a87", "#888a85", "#ad7fa8", "#75507b", "#5c3566", "#ef2929",
	"#cc0000", "#a40000", "#2e3436",
}

// TagColor returns the palette color of a tag, it only depends on the tag name
func TagColor(tag string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}

// AssignTagColors adds a color to every tag the project has no color for yet.
// It returns whether the project colors changed.
func AssignTagColors(ctx context.Context, p *Project, tags []string) (bool, error) {
	changed := false
	for _, tag := range tags {
		if _, ok := p.TagsColors[tag]; ok {
			continue
		}
		if p.TagsColors == nil {
			p.TagsColors = make(map[string]string, len(tags))
		}
		p.TagsColors[tag] = TagColor(tag)
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, UpdateProjectCols(ctx, p, "tags_colors")
}

// RecomputeTagColors rebuilds the palette of the project from the tags in use.
// Colors of tags still in use are kept, unused tags are dropped.
func RecomputeTagColors(ctx context.Context, p *Project, tagsInUse []string) error {
	colors := make(map[string]string, len(tagsInUse))
	for _, tag := range tagsInUse {
		if c, ok := p.TagsColors[tag]; ok {
			colors[tag] = c
		} else {
			colors[tag] = TagColor(tag)
		}
	}
	if maps.Equal(colors, p.TagsColors) {
		return nil
	}
	p.TagsColors = colors
	_, err := db.GetEngine(ctx).ID(p.ID).Cols("tags_colors").Update(p)
	return err
}
