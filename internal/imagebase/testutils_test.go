package imagebase

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testSegment struct {
	typ   elf.ProgType
	vaddr uint64
	off   uint64
}

// writeELF64 writes a little-endian ELF64 file consisting of a header and
// program headers only.
func writeELF64(t *testing.T, typ elf.Type, segs []testSegment) string {
	t.Helper()
	var buf bytes.Buffer
	ident := [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}
	hdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(typ),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     64,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     uint16(len(segs)),
		Shentsize: 64,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))
	for _, s := range segs {
		ph := elf.Prog64{
			Type:   uint32(s.typ),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Off:    s.off,
			Vaddr:  s.vaddr,
			Paddr:  s.vaddr,
			Filesz: 0x1000,
			Memsz:  0x1000,
			Align:  0x1000,
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, ph))
	}
	return writeTemp(t, "object.elf", buf.Bytes())
}

func writePE64(t *testing.T, imageBase uint64) string {
	t.Helper()
	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")
	oh := pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           imageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		NumberOfRvaAndSizes: 16,
	}
	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, fh))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, oh))
	return writeTemp(t, "object.exe", buf.Bytes())
}

func writeMachO64(t *testing.T, textAddr uint64) string {
	t.Helper()
	var buf bytes.Buffer
	seg := macho.Segment64{
		Cmd:  macho.LoadCmdSegment64,
		Len:  72,
		Addr: textAddr,
	}
	copy(seg.Name[:], "__TEXT")
	hdr := macho.FileHeader{
		Magic: macho.Magic64,
		Cpu:   macho.CpuAmd64,
		Type:  macho.TypeExec,
		Ncmd:  1,
		Cmdsz: seg.Len,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, seg))
	return writeTemp(t, "object.dylib", buf.Bytes())
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
