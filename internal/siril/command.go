package siril

import (
	"strconv"
	"strings"
)

// Command is one line of a Siril script: a command name followed by its
// arguments.
type Command struct {
	Name string
	Args []string
}

// String renders the command as a script line. Arguments containing
// whitespace are double-quoted, which Siril's tokenizer understands.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, arg := range c.Args {
		b.WriteByte(' ')
		b.WriteString(quote(arg))
	}
	return b.String()
}

// sticky reports whether the command changes session-level state that
// must survive across batches.
func (c Command) sticky() bool {
	return c.Name == "cd" || c.Name == "setext"
}

func quote(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.ContainsAny(arg, " \t") {
		return `"` + arg + `"`
	}
	return arg
}

// Requires declares the minimum Siril version a script needs.
func Requires(version string) Command {
	return Command{Name: "requires", Args: []string{version}}
}

// Cd changes Siril's working directory.
func Cd(dir string) Command {
	return Command{Name: "cd", Args: []string{dir}}
}

// SetExt sets the extension Siril uses for FITS files ("fit", "fits", "fts").
func SetExt(ext string) Command {
	return Command{Name: "setext", Args: []string{strings.TrimPrefix(ext, ".")}}
}

// Load loads an image. Without an extension Siril tries the session FITS
// extension first, then the other supported formats (including .tif).
func Load(name string) Command {
	return Command{Name: "load", Args: []string{name}}
}

// Set16Bits makes later saves use 16-bit unsigned integers.
func Set16Bits() Command {
	return Command{Name: "set16bits"}
}

// Set32Bits makes later saves use 32-bit floats.
func Set32Bits() Command {
	return Command{Name: "set32bits"}
}

// SaveTIF saves the loaded image as name + ".tif".
func SaveTIF(name string) Command {
	return Command{Name: "savetif", Args: []string{name}}
}

// Save saves the loaded image as FITS with the session extension.
func Save(name string) Command {
	return Command{Name: "save", Args: []string{name}}
}

// Fmul multiplies every pixel of the loaded image by factor.
func Fmul(factor float64) Command {
	v := strconv.FormatFloat(factor, 'f', -1, 64)
	if !strings.ContainsAny(v, ".eE") {
		v += ".0"
	}
	return Command{Name: "fmul", Args: []string{v}}
}

// Isub subtracts the named image from the loaded image, pixel by pixel.
func Isub(name string) Command {
	return Command{Name: "isub", Args: []string{name}}
}
