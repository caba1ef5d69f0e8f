// Copyright 2025 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package main

// Windows hosts may lack timezone data, the due dates of imported items are parsed in their source zone.
import _ "time/tzdata"
