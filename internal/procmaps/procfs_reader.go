//go:build !windows

package procmaps

import (
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcfsReader reads memory mappings through the procfs library instead of
// parsing the maps file by hand.
type ProcfsReader struct {
	fs  procfs.FS
	pid int
}

func NewProcfsReader(mountPoint string, pid int) (*ProcfsReader, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs at %s: %w", mountPoint, err)
	}
	return &ProcfsReader{fs: fs, pid: pid}, nil
}

func (r *ProcfsReader) ReadRegions() ([]MapRegion, error) {
	proc, err := r.fs.Proc(r.pid)
	if err != nil {
		return nil, err
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("read maps of pid %d: %w", r.pid, err)
	}
	regions := make([]MapRegion, 0, len(maps))
	for _, m := range maps {
		path, deleted := splitDeleted(m.Pathname)
		regions = append(regions, MapRegion{
			Start:   uint64(m.StartAddr),
			End:     uint64(m.EndAddr),
			Offset:  uint64(m.Offset),
			Perms:   permString(m.Perms),
			Dev:     fmt.Sprintf("%02x:%02x", unix.Major(m.Dev), unix.Minor(m.Dev)),
			Inode:   m.Inode,
			Path:    path,
			Deleted: deleted,
		})
	}
	return regions, nil
}

func permString(p *procfs.ProcMapPermissions) string {
	if p == nil {
		return "----"
	}
	b := []byte("---p")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	if p.Shared {
		b[3] = 's'
	}
	return string(b)
}
