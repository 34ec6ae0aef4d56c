package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// filenamePattern accepts V{version}_{name}.{up|down}.sql and
// {14-digit timestamp}_{name}.{up|down}.sql.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^(?:V(\d+)|(\d{14}))_(.+)\.(up|down)\.sql$`,
)

// LoadFromDir loads the migrations in dir. FilePath is set relative to dir
// as given. The result is unsorted.
func LoadFromDir(dir string) ([]Migration, error) {
	ms, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	for i := range ms {
		ms[i].FilePath = filepath.Join(dir, filepath.FromSlash(ms[i].FilePath))
	}

	return ms, nil
}

// LoadFS loads the migrations at the root of fsys, such as an embed.FS.
// Files that do not match the naming scheme are ignored, as is a down file
// without its up file.
func LoadFS(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	pairs, err := pairFiles(entries)
	if err != nil {
		return nil, err
	}

	ms := make([]Migration, 0, len(pairs))

	for _, p := range pairs {
		m, err := p.read(fsys)
		if err != nil {
			return nil, err
		}

		ms = append(ms, m)
	}

	return ms, nil
}

type filePair struct {
	version, name string
	up, down      string
}

// pairFiles returns one pair per up file, with the down file of the same
// version and name attached when it exists.
func pairFiles(entries []fs.DirEntry) ([]*filePair, error) {
	byVersion := make(map[string]*filePair)
	downs := make(map[string]string)

	var pairs []*filePair

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		match := filenamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		version, name := match[1]+match[2], match[3]

		if match[4] == "down" {
			downs[version+"_"+name] = entry.Name()
			continue
		}

		if prev, ok := byVersion[version]; ok {
			return nil, fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateVersion, version, prev.name, name)
		}

		p := &filePair{version: version, name: name, up: entry.Name()}
		byVersion[version] = p
		pairs = append(pairs, p)
	}

	for _, p := range pairs {
		p.down = downs[p.version+"_"+p.name]
	}

	return pairs, nil
}

func (p *filePair) read(fsys fs.FS) (Migration, error) {
	up, err := readSQL(fsys, p.up)
	if err != nil {
		return Migration{}, err
	}

	var down string

	if p.down != "" {
		if down, err = readSQL(fsys, p.down); err != nil {
			return Migration{}, err
		}
	}

	return Migration{
		Version:  p.version,
		Name:     p.name,
		UpSQL:    up,
		DownSQL:  down,
		Checksum: ComputeChecksum(up),
		FilePath: p.up,
	}, nil
}

func readSQL(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("reading migration file %s: %w", name, err)
	}

	return strings.TrimSpace(string(data)), nil
}
