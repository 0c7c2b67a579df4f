// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"testing"
)

func TestExitCode_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    ExitCode
		wantErr bool
	}{
		{0, false},
		{1, false},
		{255, false},
		{-1, true},
		{256, true},
	}
	for _, tt := range tests {
		err := tt.code.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("ExitCode(%d).Validate() error = %v, wantErr %v", tt.code, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidExitCode) {
			t.Errorf("error %v does not wrap ErrInvalidExitCode", err)
		}
	}
}

func TestExitCodeFromStatus(t *testing.T) {
	t.Parallel()

	tests := map[int]ExitCode{0: 0, 42: 42, 255: 255, -1: 1, 300: 1}
	for status, want := range tests {
		if got := exitCodeFromStatus(status); got != want {
			t.Errorf("exitCodeFromStatus(%d) = %d, want %d", status, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if StateTornDown.String() != "torn-down" || State(9).String() != "State(9)" {
		t.Errorf("unexpected state names: %s %s", StateTornDown, State(9))
	}
}
