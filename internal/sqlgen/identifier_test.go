package sqlgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		ident   string
		wantErr bool
	}{
		{name: "simple", ident: "users"},
		{name: "mixed case", ident: "UserAccounts"},
		{name: "underscore and digits", ident: "order_items_2024"},
		{name: "dollar sign", ident: "pg$temp"},
		{name: "hyphen", ident: "audit-log"},
		{name: "leading digit", ident: "2users", wantErr: true},
		{name: "leading underscore", ident: "_hidden", wantErr: true},
		{name: "whitespace", ident: "user accounts", wantErr: true},
		{name: "quote injection", ident: `users"; DROP TABLE x; --`, wantErr: true},
		{name: "semicolon", ident: "users;", wantErr: true},
		{name: "empty", ident: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckIdentifier(tt.ident)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidIdentifier))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ident, got)
		})
	}
}

func TestFormatTable(t *testing.T) {
	got, err := FormatTable("users", "public", true)
	require.NoError(t, err)
	assert.Equal(t, `"public"."users"`, got)

	got, err = FormatTable("users", "", true)
	require.NoError(t, err)
	assert.Equal(t, `"users"`, got)

	_, err = FormatTable("users", "bad schema", true)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	// check=false trusts the caller
	got, err = FormatTable("no check", "", false)
	require.NoError(t, err)
	assert.Equal(t, `"no check"`, got)
}

func TestFormatColumn(t *testing.T) {
	got, err := FormatColumn("id", true, "", "")
	require.NoError(t, err)
	assert.Equal(t, `"id"`, got)

	got, err = FormatColumn("id", true, "users", "public")
	require.NoError(t, err)
	assert.Equal(t, `"public"."users"."id"`, got)

	_, err = FormatColumn("1bad", true, "", "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestSortColumns(t *testing.T) {
	got, err := SortColumns([]string{"name", "-created_at"}, true, "", "")
	require.NoError(t, err)
	assert.Equal(t, `"name" ASC, "created_at" DESC`, got)
}

func TestListColumns(t *testing.T) {
	got, err := ListColumns([]string{"id", "email"}, true, "users", "")
	require.NoError(t, err)
	assert.Equal(t, `"users"."id", "users"."email"`, got)
}

func TestShouldEscape(t *testing.T) {
	assert.False(t, ShouldEscape(Raw("now()")))
	assert.True(t, ShouldEscape("now()"))
	assert.True(t, ShouldEscape(42))
}
