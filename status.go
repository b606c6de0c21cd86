package fstree

import "io/fs"

// FileType is the top-byte discriminant packed into a FileStatus.
type FileType uint32

const (
	TypeNone      FileType = 0
	TypeRegular   FileType = 1
	TypeDirectory FileType = 2
	TypeSymlink   FileType = 4
)

const typeShift = 24
const permsMask = 0x1ff // low 9 bits: rwxrwxrwx

// FileStatus packs a FileType and POSIX permission bits into one u32, the
// same layout stored in tree objects and index entries.
type FileStatus uint32

// NewFileStatus packs a type and fs.FileMode's permission bits.
func NewFileStatus(t FileType, mode fs.FileMode) FileStatus {
	return FileStatus(uint32(t)<<typeShift | uint32(mode&fs.ModePerm))
}

func (s FileStatus) Type() FileType { return FileType(uint32(s) >> typeShift) }
func (s FileStatus) Perm() fs.FileMode {
	return fs.FileMode(uint32(s) & permsMask)
}

func (s FileStatus) IsDir() bool     { return s.Type() == TypeDirectory }
func (s FileStatus) IsRegular() bool { return s.Type() == TypeRegular }
func (s FileStatus) IsSymlink() bool { return s.Type() == TypeSymlink }

// WithPerm returns a copy of s with its permission bits replaced.
func (s FileStatus) WithPerm(mode fs.FileMode) FileStatus {
	return NewFileStatus(s.Type(), mode)
}

// String renders the 10-character "drwxr-xr-x" form.
func (s FileStatus) String() string {
	b := [10]byte{}
	switch s.Type() {
	case TypeDirectory:
		b[0] = 'd'
	case TypeSymlink:
		b[0] = 'l'
	default:
		b[0] = '-'
	}
	perm := uint32(s.Perm())
	letters := [3]byte{'r', 'w', 'x'}
	for group := 0; group < 3; group++ {
		for bit := 0; bit < 3; bit++ {
			shift := 8 - group*3 - bit
			idx := 1 + group*3 + bit
			if perm&(1<<uint(shift)) != 0 {
				b[idx] = letters[bit]
			} else {
				b[idx] = '-'
			}
		}
	}
	return string(b[:])
}

func fileTypeOf(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	case mode.IsDir():
		return TypeDirectory
	case mode.IsRegular():
		return TypeRegular
	default:
		return TypeNone
	}
}
