// Package fstest defines the file tree filesystem tests open files in. The
// same tree is written to the host and to in-memory filesystems, so both are
// validated against the same cases.
package fstest

import (
	"io/fs"
	"os"
	"path"
	"testing/fstest"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Animals is the content of "animals.txt".
const Animals = `bear
cat
shark
dinosaur
human
`

var files = []struct {
	name string
	file *fstest.MapFile
}{
	{name: "empty.txt", file: &fstest.MapFile{Mode: 0o600}},
	{name: "animals.txt", file: &fstest.MapFile{Data: []byte(Animals), Mode: 0o644}},
	{name: "sub", file: &fstest.MapFile{Mode: fs.ModeDir | 0o755}},
	{name: "sub/test.txt", file: &fstest.MapFile{Data: []byte("greet sub dir\n"), Mode: 0o444}},
	{name: "emptydir", file: &fstest.MapFile{Mode: fs.ModeDir | 0o755}},
}

// FS includes all test files.
var FS = func() fs.ReadDirFS {
	testFS := make(fstest.MapFS, len(files))
	for _, nf := range files {
		testFS[nf.name] = nf.file
	}
	return testFS
}()

// WriteTestFiles writes files defined in FS to the given host directory.
func WriteTestFiles(tmpDir string) (err error) {
	// Don't use a map as the iteration order is inconsistent and can result in
	// files created prior to their directories.
	for _, nf := range files {
		fullPath := path.Join(tmpDir, nf.name)
		if mode := nf.file.Mode; mode&fs.ModeDir != 0 {
			err = os.Mkdir(fullPath, mode)
		} else {
			err = os.WriteFile(fullPath, nf.file.Data, mode)
		}
		if err != nil {
			return
		}
	}
	return
}

// WriteTestFilesFS writes files defined in FS under the root of bfs, ex. a
// memfs.Memory.
func WriteTestFilesFS(bfs billy.Filesystem) (err error) {
	for _, nf := range files {
		fullPath := path.Join("/", nf.name)
		if mode := nf.file.Mode; mode&fs.ModeDir != 0 {
			err = bfs.MkdirAll(fullPath, mode.Perm())
		} else {
			err = util.WriteFile(bfs, fullPath, nf.file.Data, mode)
		}
		if err != nil {
			return
		}
	}
	return
}

// TestFS runs fstest.TestFS on the given input which is either FS or includes
// files written by WriteTestFiles.
func TestFS(testfs fs.FS) error {
	expected := make([]string, 0, len(files))
	for _, nf := range files {
		expected = append(expected, nf.name)
	}
	return fstest.TestFS(testfs, expected...)
}
