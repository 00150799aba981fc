// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"context"
	"time"
)

// Timer wraps a one-shot timer and a cancellation context.
type Timer struct {
	cancel context.CancelFunc
}

// NewOneShotTimer calls expired once after d unless the timer is stopped
// first.
func NewOneShotTimer(d time.Duration, expired func()) *Timer {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Timer{cancel: cancel}

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			expired()
		}
	}()

	return t
}

// Stop cancels the timer and cleans up resources.
func (t *Timer) Stop() {
	if t != nil && t.cancel != nil {
		t.cancel()
	}
}
