package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		required    []string
		expected    []TableRow
		expectError bool
	}{
		{
			name:     "Keeps file order",
			content:  "keyword,group\n강남구,구청\n서울,시청\n",
			required: []string{"keyword", "group"},
			expected: []TableRow{
				{"keyword": "강남구", "group": "구청"},
				{"keyword": "서울", "group": "시청"},
			},
		},
		{
			name:     "Strips BOM from header",
			content:  "\ufeffkeyword,manufacturer\nSONATA,HYUNDAI\n",
			required: []string{"keyword"},
			expected: []TableRow{
				{"keyword": "SONATA", "manufacturer": "HYUNDAI"},
			},
		},
		{
			name:     "Short rows leave columns empty",
			content:  "vehicle_type,sub_category,mid_category,manufacturer\nPORTER,,화물차\n",
			required: []string{"vehicle_type"},
			expected: []TableRow{
				{"vehicle_type": "PORTER", "sub_category": "", "mid_category": "화물차"},
			},
		},
		{
			name:        "Missing required column",
			content:     "keyword\nfoo\n",
			required:    []string{"keyword", "group"},
			expectError: true,
		},
		{
			name:        "Empty file",
			content:     "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadTable(strings.NewReader(tt.content), tt.required...)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rows)
		})
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in_keywords.csv")
	require.NoError(t, os.WriteFile(path, []byte("keyword,group\n경찰,경찰청\n"), 0644))

	rows, err := LoadTable(path, "keyword", "group")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "경찰청", rows[0]["group"])

	_, err = LoadTable(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestReadTableAliased(t *testing.T) {
	content := "\ufeff일련번호,카테고리,최저입찰가\nA-1,[자동차 / 승용차],\"1,000\"\n"
	aliases := map[string]string{"일련번호": "id", "카테고리": "category", "최저입찰가": "min_bid_price"}

	rows, err := ReadTableAliased(strings.NewReader(content), aliases, "id", "min_bid_price")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, TableRow{"id": "A-1", "category": "[자동차 / 승용차]", "min_bid_price": "1,000"}, rows[0])

	_, err = ReadTableAliased(strings.NewReader(content), nil, "id")
	assert.Error(t, err)
}
