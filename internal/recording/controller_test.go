/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package recording

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSignalStartSetsStartedFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Start(3).Return(nil)

	c := New(backend, time.Second)
	require.NoError(t, c.SignalStart(3))
	require.True(t, c.Started())
}

func TestSignalStopNoopWithoutStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	// Stop must never be called on the backend.

	c := New(backend, time.Second)
	require.NoError(t, c.SignalStop())
}

// TestRecordingBracketing exercises the start/stop bracketing rule: stop is
// emitted if and only if start was, and AwaitStopped only proceeds after a
// prior start.
func TestRecordingBracketing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Start(0).Return(nil)
	backend.EXPECT().Stop().Return(nil)
	backend.EXPECT().AwaitStopped(gomock.Any()).Return(nil)

	c := New(backend, time.Second)
	require.NoError(t, c.SignalStart(0))
	require.NoError(t, c.SignalStop())
	require.NoError(t, c.AwaitStopped(context.Background()))
}

func TestSignalStopIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Start(0).Return(nil)
	backend.EXPECT().Stop().Return(nil).Times(1) // only once despite two calls

	c := New(backend, time.Second)
	require.NoError(t, c.SignalStart(0))
	require.NoError(t, c.SignalStop())
	require.NoError(t, c.SignalStop())
}

func TestAwaitStoppedWithoutStartIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	// AwaitStopped must never reach the backend.

	c := New(backend, time.Second)
	require.NoError(t, c.AwaitStopped(context.Background()))
}

func TestAwaitStoppedTimeoutDoesNotError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Start(0).Return(nil)
	backend.EXPECT().Stop().Return(nil)
	backend.EXPECT().AwaitStopped(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	c := New(backend, 20*time.Millisecond)
	require.NoError(t, c.SignalStart(0))
	require.NoError(t, c.SignalStop())
	require.NoError(t, c.AwaitStopped(context.Background()))
}

func TestResetClearsFlags(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Start(0).Return(nil)

	c := New(backend, time.Second)
	require.NoError(t, c.SignalStart(0))
	c.Reset()
	require.False(t, c.Started())
}
