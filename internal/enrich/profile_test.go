package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndustryTaxonomy(t *testing.T) {
	require.Len(t, Industries, 46)
	require.Equal(t, []string{"B2B", "B2C", "B2G", "C2C"}, BusinessModels)
}

func TestProfileFormat(t *testing.T) {
	p := Profile{
		Description:    "Acme builds rockets",
		TargetAudience: "Satellite operators",
		MarketProblem:  "Launches are expensive",
		Product:        "Reusable boosters",
		BusinessModel:  "B2B",
		Industry:       "Science and Engineering",
	}
	want := strings.Join([]string{
		"#Description# Acme builds rockets",
		"#Target Audience# Satellite operators",
		"#Market Problem# Launches are expensive",
		"#Product# Reusable boosters",
		"#Business Model# B2B",
		"#Industry# Science and Engineering",
	}, "\n")
	assert.Equal(t, want, p.Format())

	assert.Equal(t, "#Description# only", Profile{Description: "only"}.Format())
}

func TestProfileNormalize(t *testing.T) {
	p := Profile{
		Description:   "  padded  ",
		BusinessModel: "b2c",
		Industry:      "health care",
	}.Normalize()
	assert.Equal(t, "padded", p.Description)
	assert.Equal(t, "B2C", p.BusinessModel)
	assert.Equal(t, "Health Care", p.Industry)

	p = Profile{BusinessModel: "D2C", Industry: "Space"}.Normalize()
	assert.Empty(t, p.BusinessModel)
	assert.Empty(t, p.Industry)
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain json", raw: `{"description":"a"}`, want: "a"},
		{name: "fenced json", raw: "```json\n{\"description\":\"b\"}\n```", want: "b"},
		{name: "bare fence", raw: "```\n{\"description\":\"c\"}\n```", want: "c"},
		{name: "leading prose", raw: "Here you go: {\"description\":\"d\"}", want: "d"},
		{name: "garbage", raw: "no json here", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Description)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "héé", Truncate("héééé", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestInstructionsListAllowedValues(t *testing.T) {
	instr := Instructions()
	for _, industry := range Industries {
		assert.Contains(t, instr, industry)
	}
	assert.Contains(t, instr, "B2G")
}
