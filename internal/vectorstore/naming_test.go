package vectorstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"spaces become underscores", "annual report 2024", "annual_report_2024"},
		{"special characters collapse", "q3!!report(final)", "q3_report_final"},
		{"non-ascii replaced", "résumé.pdf", "r_sum_pdf"},
		{"leading digit prefixed", "2024_report", "col_2024_report"},
		{"empty input", "", "col"},
		{"only symbols", "!!!", "col"},
		{"uppercase lowered", "My_Report", "my_report"},
		{"underscore runs collapse", "a___b", "a_b"},
		{"trimmed", "_edges_", "edges"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Transliteration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"han only", "测试文档", "ce_shi_wen_dang"},
		{"han with extension", "数据.pdf", "shu_ju_pdf"},
		{"mixed han and ascii", "年度report", "nian_du_report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}

	// Distinct Chinese names keep distinct stems.
	assert.NotEqual(t, Sanitize("测试文档"), Sanitize("数据文档"))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{"annual report 2024", "2024!", "数据.pdf", strings.Repeat("x", 300)}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitize_LongNames(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := Sanitize(long)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 200)))

	// Distinct long inputs must not collide.
	other := Sanitize(strings.Repeat("a", 299) + "b")
	assert.NotEqual(t, got, other)
}

func TestCollectionName(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := CollectionName("docs/Annual Report.pdf", "openai", at)
	assert.Equal(t, "annual_report_openai_20260314092653", got)

	// Deterministic for fixed inputs.
	assert.Equal(t, got, CollectionName("docs/Annual Report.pdf", "openai", at))

	assert.Equal(t, "doc_fastembed_20260314092653", CollectionName("", "fastembed", at))
}
