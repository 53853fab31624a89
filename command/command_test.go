package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	assert := assert.New(t)
	tests := []struct {
		line     string
		expected Command
	}{
		{"insert,Alice,50000,1", Command{Op: Insert, Name: "Alice", Value: 50000, ID: 1}},
		{"INSERT, Richard Garriot ,40000, 2", Command{Op: Insert, Name: "Richard Garriot", Value: 40000, ID: 2}},
		{"delete,Bob,3", Command{Op: Delete, Name: "Bob", ID: 3}},
		{"search,Carol,4", Command{Op: Search, Name: "Carol", ID: 4}},
		{"update,Carol,35000,5", Command{Op: Update, Name: "Carol", Value: 35000, ID: 5}},
		{"updatesalary,Carol,36000,6", Command{Op: Update, Name: "Carol", Value: 36000, ID: 6}},
		{"print,7", Command{Op: Print, ID: 7}},
		{"  print , 8  ", Command{Op: Print, ID: 8}},
		{"insert,Max,4294967295,0", Command{Op: Insert, Name: "Max", Value: 4294967295, ID: 0}},
	}

	for _, test := range tests {
		cmd, ok := Parse(test.line, Options{})
		assert.True(ok, "Parse(%q)", test.line)
		assert.Equal(test.expected, cmd, "Parse(%q)", test.line)
	}
}

func TestParseMalformed(t *testing.T) {
	lines := []string{
		"",
		"threads,10,0",
		"insert,Alice,50000",
		"insert,Alice,50000,1,extra",
		"insert,Alice,-5,1",
		"insert,Alice,4294967296,1",
		"insert,,5,1",
		"delete,Bob",
		"search,Carol,x",
		"print",
		"print,",
		"print,1,2",
		"update,Carol,3.5,1",
	}
	for _, line := range lines {
		_, ok := Parse(line, Options{})
		assert.False(t, ok, "Parse(%q) should fail", line)
	}
}

func TestParseNormalize(t *testing.T) {
	assert := assert.New(t)
	decomposed := "Jose\u0301"

	cmd, ok := Parse("search,"+decomposed+",1", Options{})
	assert.True(ok)
	assert.Equal(decomposed, cmd.Name, "names are left alone by default")

	cmd, ok = Parse("search,"+decomposed+",1", Options{Normalize: true})
	assert.True(ok)
	assert.Equal("Jos\u00e9", cmd.Name)
}

func TestParseAll(t *testing.T) {
	assert := assert.New(t)
	input := strings.Join([]string{
		"insert,Alice,50000,1",
		"",
		"   ",
		"bogus,line",
		"insert,Bob,60000,2",
		"print,3",
	}, "\n")

	var dropped []int
	cmds, err := ParseAll(strings.NewReader(input), Options{
		OnDrop: func(lineNo int, line string) { dropped = append(dropped, lineNo) },
	})
	require.NoError(t, err)
	assert.Equal([]Command{
		{Op: Insert, Name: "Alice", Value: 50000, ID: 1},
		{Op: Insert, Name: "Bob", Value: 60000, ID: 2},
		{Op: Print, ID: 3},
	}, cmds)
	assert.Equal([]int{4}, dropped)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestParseAllReadError(t *testing.T) {
	_, err := ParseAll(errReader{}, Options{})
	assert.ErrorContains(t, err, "read failed")
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "update", Update.String())
	assert.Equal(t, "Op(9)", Op(9).String())
}
