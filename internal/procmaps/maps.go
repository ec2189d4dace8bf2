package procmaps

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type MapRegion struct {
	Start, End uint64
	Offset     uint64
	Perms      string
	Dev        string
	Inode      uint64
	Path       string
	// Deleted is set when the mapped file was unlinked; Path is the name it
	// had, which may since have been reused by a different file.
	Deleted bool
}

// Executable reports whether the region is mapped with execute permission.
func (r MapRegion) Executable() bool {
	return len(r.Perms) >= 3 && r.Perms[2] == 'x'
}

// FileBacked reports whether the region maps a regular file rather than an
// anonymous or kernel-provided area such as [heap], [stack] or [vdso].
func (r MapRegion) FileBacked() bool {
	return r.Path != "" && !strings.HasPrefix(r.Path, "[")
}

type RegionReader interface {
	ReadRegions() ([]MapRegion, error)
}

// ProcMapsReader parses a maps file in the /proc/<pid>/maps format.
type ProcMapsReader struct {
	path string
}

func NewProcMapsReader(pid int) *ProcMapsReader {
	return NewFileMapsReader(fmt.Sprintf("/proc/%d/maps", pid))
}

func NewFileMapsReader(path string) *ProcMapsReader {
	return &ProcMapsReader{path: path}
}

func (p *ProcMapsReader) ReadRegions() ([]MapRegion, error) {
	slog.Debug("Reading memory mappings", "path", p.path)
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	regions, err := ParseMaps(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return regions, nil
}

// ParseMaps streams regions out of r one line at a time. Malformed lines are
// logged and skipped.
func ParseMaps(r io.Reader) ([]MapRegion, error) {
	var regions []MapRegion
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if line == "" {
			continue
		}
		entry, err := parseMapEntry(line)
		if err != nil {
			slog.Warn("Failed to parse map entry", "line", line, "error", err)
			continue
		}
		regions = append(regions, entry)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// Example format:
//
//	55d4b2000000-55d4b2021000 r--p 00000000 08:01 131073 /usr/bin/myprog
func parseMapEntry(line string) (MapRegion, error) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return MapRegion{}, fmt.Errorf("not enough fields: %d in line \"%s\"", len(parts), line)
	}
	addr := parts[0]
	perms := parts[1]
	off := parts[2]
	se := strings.SplitN(addr, "-", 2)
	if len(se) != 2 {
		return MapRegion{}, fmt.Errorf("invalid address range format in line %s", line)
	}
	start, err1 := strconv.ParseUint(se[0], 16, 64)
	end, err2 := strconv.ParseUint(se[1], 16, 64)
	offv, err3 := strconv.ParseUint(off, 16, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return MapRegion{}, fmt.Errorf("failed to parse numeric addresses in line %s", line)
	}
	if end < start {
		return MapRegion{}, fmt.Errorf("region end before start in line %s", line)
	}
	inode, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return MapRegion{}, fmt.Errorf("failed to parse inode in line %s: %w", line, err)
	}
	path, deleted := splitDeleted(pathField(line))
	return MapRegion{Start: start, End: end, Offset: offv, Perms: perms, Dev: parts[3], Inode: inode, Path: path, Deleted: deleted}, nil
}

// pathField returns everything after the inode column verbatim, so that runs
// of spaces inside a path survive.
func pathField(line string) string {
	rest := line
	for i := 0; i < 5; i++ {
		rest = strings.TrimLeft(rest, " \t")
		j := strings.IndexAny(rest, " \t")
		if j < 0 {
			return ""
		}
		rest = rest[j:]
	}
	return strings.TrimLeft(rest, " \t")
}

// splitDeleted strips the marker the kernel appends to paths whose file was
// unlinked after being mapped.
func splitDeleted(path string) (string, bool) {
	return strings.CutSuffix(path, " (deleted)")
}
