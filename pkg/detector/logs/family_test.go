package logs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

const oomLog = `2024-02-14 10:30:15 ERROR: out of memory error
2024-02-14 10:30:16 INFO request served
2024-02-14 10:30:17 ERROR: out of memory error
2024-02-14 10:30:18 ERROR: Connection refused to db:5432
2024-02-14 10:30:19 ERROR: out of memory error
`

func ruleIDs(issues []model.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.RuleID)
	}
	return out
}

func TestDetect_DeduplicatesSignatures(t *testing.T) {
	issues, err := New(Config{}).Detect(context.Background(), oomLog)
	require.NoError(t, err)
	require.Equal(t, []string{catalog.LogOutOfMemory, catalog.LogConnectionRefused}, ruleIDs(issues))

	oom := issues[0]
	assert.Equal(t, model.CategoryLog, oom.Category)
	assert.Equal(t, "3", oom.Fact("count"))
	assert.Equal(t, "1", oom.Fact("first_line"))
	assert.Equal(t, "line 1", oom.ResourceRef)
	assert.Equal(t, "out-of-memory", oom.Fact("signature"))

	refused := issues[1]
	assert.Equal(t, "1", refused.Fact("count"))
	assert.Equal(t, "line 4", refused.ResourceRef)
}

func TestDetect_HighErrorRate(t *testing.T) {
	issues, err := New(Config{Threshold: 2}).Detect(context.Background(), oomLog)
	require.NoError(t, err)
	require.Equal(t, []string{catalog.LogOutOfMemory, catalog.LogConnectionRefused, catalog.LogHighErrorRate}, ruleIDs(issues))

	high := issues[2]
	assert.Equal(t, "out-of-memory", high.Fact("signature"))
	assert.Equal(t, "3", high.Fact("count"))
	assert.Equal(t, "2", high.Fact("threshold"))
}

func TestDetect_ThresholdIsStrict(t *testing.T) {
	issues, err := New(Config{Threshold: 3}).Only(catalog.LogHighErrorRate).Detect(context.Background(), oomLog)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_Signatures(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Last State: Terminated Reason: OOMKilled", catalog.LogOutOfMemory},
		{"dial tcp 10.0.0.1:6379: connect: ECONNREFUSED", catalog.LogConnectionRefused},
		{"context deadline exceeded", catalog.LogTimeout},
		{"open /var/run/app.sock: permission denied", catalog.LogPermissionDenied},
		{"stat /etc/app/config.yaml: no such file or directory", catalog.LogNotFound},
		{"Warning BackOff: Back-off restarting failed container", catalog.LogCrashLoop},
		{"Failed to pull image \"app:latest\": rpc error", catalog.LogImagePullFailure},
		{"write /data/wal: no space left on device", catalog.LogDiskFull},
		{"pq: deadlock detected (SQLSTATE 40P01)", catalog.LogDatabaseError},
		{"sqlalchemy: QueuePool limit reached, connection pool exhausted", catalog.LogDatabaseError},
		{"ModuleNotFoundError: No module named 'requests'", catalog.LogDependencyError},
		{"Error: Cannot find module 'express'", catalog.LogDependencyError},
		{"Error: UPGRADE FAILED: timed out waiting for the condition", catalog.LogDeploymentFailed},
		{"deployment \"web\" exceeded its progress deadline: ProgressDeadlineExceeded", catalog.LogDeploymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			issues, err := New(Config{}).Detect(context.Background(), tt.line)
			require.NoError(t, err)
			assert.Contains(t, ruleIDs(issues), tt.want)
		})
	}
}

func TestDetect_DatabaseSignatureIgnoresPlainQueries(t *testing.T) {
	issues, err := New(Config{}).Detect(context.Background(), "2024-02-14 INFO query users took 3ms\n2024-02-14 INFO connected to database primary\n")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_NoMatches(t *testing.T) {
	issues, err := New(Config{}).Detect(context.Background(), "2024-02-14 INFO started\n2024-02-14 INFO ready\n")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_Empty(t *testing.T) {
	issues, err := New(Config{}).Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_LineTooLong(t *testing.T) {
	_, err := New(Config{MaxLineBytes: 16}).Detect(context.Background(), strings.Repeat("x", 64)+"\n")
	assert.ErrorIs(t, err, model.ErrMalformedArtifact)
}

func TestDetect_NonTextBytesStillSplit(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"latin1", "2024-02-14 10:30:15 ERROR caf\xe9 out of memory\n2024-02-14 10:30:16 ERROR Connection refused\n"},
		{"nul byte", "2024-02-14 10:30:15 ERROR out of memory\x00\n2024-02-14 10:30:16 ERROR Connection refused\n"},
		{"binary noise", "\xff\xfe\x00\x00\nERROR out of memory\nECONNREFUSED\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := New(Config{}).Detect(context.Background(), tt.content)
			require.NoError(t, err)
			assert.Equal(t, []string{catalog.LogOutOfMemory, catalog.LogConnectionRefused}, ruleIDs(issues))
		})
	}
}

func TestParser_CRLF(t *testing.T) {
	log, err := Parser(DefaultMaxLineBytes)("a\r\nb\r\n")
	require.NoError(t, err)
	assert.Equal(t, []Line{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}, log.Lines)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("  short  "))
	long := excerpt(strings.Repeat("é", 100))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.LessOrEqual(t, len(long), excerptLen+3)
}

func TestDetect_RuleIndependence(t *testing.T) {
	family := New(Config{Threshold: 2})
	full, err := family.Detect(context.Background(), oomLog)
	require.NoError(t, err)

	var union []model.Issue
	for _, id := range family.RuleIDs() {
		issues, err := family.Only(id).Detect(context.Background(), oomLog)
		require.NoError(t, err)
		union = append(union, issues...)
	}
	assert.Equal(t, full, union)
}

func TestChecks_CoverCatalog(t *testing.T) {
	var want []string
	for _, r := range catalog.MustDefault().RulesFor(model.CategoryLog) {
		want = append(want, r.ID)
	}
	assert.Equal(t, want, New(Config{}).RuleIDs())
}
