package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/social-analytics/internal/apperror"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffName,Surname,Age,Subscription Date\nAda,Lovelace,36,1500000000\nAlan,Turing,,\n"

	tbl, err := ReadCSV(Users, strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Surname", "Age", "Subscription Date"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())

	v, ok := tbl.Cell(0, 2)
	assert.True(t, ok)
	assert.Equal(t, "36", v)

	_, ok = tbl.Cell(1, 2)
	assert.False(t, ok, "empty age should be missing")
}

func TestReadCSV_RaggedRowsArePadded(t *testing.T) {
	tbl, err := ReadCSV(Posts, strings.NewReader("User,Post Date\n1\n"))
	require.NoError(t, err)

	require.Len(t, tbl.Rows[0], 2)
	_, ok := tbl.Cell(0, 1)
	assert.False(t, ok)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(Posts, strings.NewReader(""))
	assert.Error(t, err)
}

func TestRequire_MissingColumn(t *testing.T) {
	tbl := New(Reactions, []string{"User", "Reaction Date"}, nil)

	_, err := tbl.Require(Schemas[Reactions]...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrSchema))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ColReactionType, appErr.Field)
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "  ", "NaN", "null", "None"} {
		assert.True(t, IsMissing(v), "%q", v)
	}
	for _, v := range []string{"0", "Like", "nana"} {
		assert.False(t, IsMissing(v), "%q", v)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	rows := [][]string{{"1", "2"}}
	tbl := New(Friendships, []string{"Friend 1", "Friend 2"}, rows)
	rows[0][0] = "9"

	v, _ := tbl.Cell(0, 0)
	assert.Equal(t, "1", v)

	c := tbl.Clone()
	c.Rows[0][1] = "7"
	v, _ = tbl.Cell(0, 1)
	assert.Equal(t, "2", v)
}
