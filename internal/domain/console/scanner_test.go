package console

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScan covers marker orderings end to end.
func TestScan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		lines []string
		want  Verdict
	}{
		{
			name: "all markers in order pass",
			lines: []string{
				"[X] Loading Skript",
				"[X] All scripts loaded without errors.",
				"[X] Finished loading.",
			},
			want: VerdictPassed,
		},
		{
			name: "missing success marker fails",
			lines: []string{
				"[X] Loading Skript",
				"[X] Finished loading.",
			},
			want: VerdictFailed,
		},
		{
			name: "success marker after finished is too late",
			lines: []string{
				"[X] Finished loading.",
				"[X] All scripts loaded without errors.",
			},
			want: VerdictFailed,
		},
		{
			name: "no finished marker stays pending",
			lines: []string{
				"[10:00:00 INFO]: Starting minecraft server version 1.20.4",
				"[X] All scripts loaded without errors.",
			},
			want: VerdictPending,
		},
		{
			name:  "no output stays pending",
			lines: nil,
			want:  VerdictPending,
		},
		{
			name: "real console prefixes",
			lines: []string{
				"[12:01:02 INFO]: [Skript] Loading Skript v2.7.0",
				"[12:01:05 INFO]: [Skript] All scripts loaded without errors.",
				"[12:01:05 INFO]: [Skript] Finished loading.",
			},
			want: VerdictPassed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, Scan(slices.Values(tc.lines)))
		})
	}
}

// TestScanner_Feed checks events and that the verdict is final once reached.
func TestScanner_Feed(t *testing.T) {
	t.Parallel()

	var s Scanner

	require.Equal(t, EventNone, s.Feed("Done (3.2s)! For help, type \"help\""))
	require.Equal(t, EventPluginLoading, s.Feed("[Skript] Loading Skript"))
	require.False(t, s.Done())
	require.Equal(t, EventFinished, s.Feed("[Skript] Finished loading."))
	require.True(t, s.Done())
	require.Equal(t, VerdictFailed, s.Verdict())

	// Terminal: later lines change nothing.
	require.Equal(t, EventNone, s.Feed("[Skript] All scripts loaded without errors."))
	require.Equal(t, VerdictFailed, s.Verdict())
}

// TestStringers keeps log values stable.
func TestStringers(t *testing.T) {
	t.Parallel()

	require.Equal(t, "passed", VerdictPassed.String())
	require.Equal(t, "failed", VerdictFailed.String())
	require.Equal(t, "pending", VerdictPending.String())
	require.Equal(t, "scripts-loaded", EventScriptsLoaded.String())
	require.Equal(t, "none", EventNone.String())
}
