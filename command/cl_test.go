package command

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/8090Lambert/tree-new-bee/generator"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "dump.json", outputPath("/data/dump.rdb", "", generator.FormatJSON))
	assert.Equal(t, filepath.Join("/tmp", "dump.csv"), outputPath("dump.rdb", "/tmp", generator.FormatCSV))
}

type closeFailer struct {
	bytes.Buffer
	closed bool
}

func (c *closeFailer) Close() error {
	c.closed = true
	return errors.New("disk full")
}

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	w := &closeFailer{}
	err := writeAndClose(w, func(out io.Writer) error {
		_, err := out.Write([]byte("row"))
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close output: disk full")
	assert.True(t, w.closed)
	assert.Equal(t, "row", w.String())

	w = &closeFailer{}
	err = writeAndClose(w, func(io.Writer) error { return errors.New("decode failed") })
	assert.EqualError(t, err, "decode failed")
	assert.True(t, w.closed)
}

func TestNewLogger(t *testing.T) {
	defer func() { logLevel = "" }()

	log, err := newLogger("")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.Level)

	log, err = newLogger("warn")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.Level)

	logLevel = "debug"
	log, err = newLogger("warn")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.Level)

	logLevel = "loud"
	_, err = newLogger("")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), app+" "+version)
}

func TestDumpCommand(t *testing.T) {
	color.NoColor = true
	dir, err := ioutil.TempDir("", "bee")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var b bytes.Buffer
	b.WriteString("REDIS0009")
	b.Write([]byte{rdb.TypeString, 1, 'k', 1, 'v', rdb.FlagOpcodeEOF})
	sum := make([]byte, 8)
	binary.LittleEndian.PutUint64(sum, rdb.Checksum(b.Bytes()))
	b.Write(sum)
	path := filepath.Join(dir, "dump.rdb")
	require.NoError(t, ioutil.WriteFile(path, b.Bytes(), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"dump", "--rdb", path, "--type", "json", "-o", dir, "--summary"})
	defer rootCmd.SetOut(nil)
	require.NoError(t, rootCmd.Execute())

	data, err := ioutil.ReadFile(filepath.Join(dir, "dump.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"k"`)
	assert.Contains(t, out.String(), "Sampled 1 keys")
}

func TestDumpCommandNeedsFile(t *testing.T) {
	RdbFile = ""
	rootCmd.SetArgs([]string{"dump"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--rdb")
}
