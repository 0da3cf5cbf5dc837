package tui

import "time"

type pollTickMsg time.Time
