/*
 * minijvm - a minimal Java Virtual Machine
 */

package dump

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"minijvm/internal/classfile"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4682B4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC")).
			Background(lipgloss.Color("#1a1a1a")).Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4682B4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666")).Padding(0, 1)
)

// keyValue renders "key: value" with the key styled, mirroring
// FormatKeyValue's table-like alignment idiom.
func keyValue(key string, width int, value string) string {
	k := keyStyle.Width(width).Render(key + ":")
	return k + " " + value
}

// Report renders a full disassembly report for class as plain text
// with ANSI styling, the way a "dump" CLI subcommand presents a
// parsed .class file to a terminal.
func Report(class *classfile.Class) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("class %s", class.ThisClass)))
	b.WriteString("\n")
	b.WriteString(keyValue("super", 12, class.SuperClass) + "\n")
	b.WriteString(keyValue("version", 12, fmt.Sprintf("%d.%d", class.MajorVersion, class.MinorVersion)) + "\n")
	b.WriteString(keyValue("access", 12, accessFlagsString(class.AccessFlags, true)) + "\n")
	if class.SourceFile != "" {
		b.WriteString(keyValue("source", 12, class.SourceFile) + "\n")
	}
	if len(class.Interfaces) > 0 {
		b.WriteString(keyValue("interfaces", 12, strings.Join(class.Interfaces, ", ")) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("constant pool (%d entries)", class.Pool.Size())))
	b.WriteString("\n")
	for i := 1; i < class.Pool.Size(); i++ {
		e, err := class.Pool.EntryAt(i)
		if err != nil {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s#%-4d = %s\n", mutedStyle.Render("cp"), i, describeEntry(e)))
	}
	b.WriteString("\n")

	if len(class.Fields) > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("fields (%d)", len(class.Fields))))
		b.WriteString("\n")
		for _, f := range class.Fields {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", accessFlagsString(f.AccessFlags, false), f.Descriptor, f.Name))
		}
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("methods (%d)", len(class.Methods))))
	b.WriteString("\n")
	for _, m := range class.Methods {
		b.WriteString(fmt.Sprintf("  %s %s%s\n", accessFlagsString(m.AccessFlags, false), m.Name, m.Descriptor))
		if m.Code == nil {
			b.WriteString(mutedStyle.Render("    (no Code attribute)") + "\n")
			continue
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("    max_stack=%d max_locals=%d code_length=%d",
			m.Code.MaxStack, m.Code.MaxLocals, len(m.Code.Code))) + "\n")
		for _, instr := range Disassemble(m.Code.Code) {
			b.WriteString(fmt.Sprintf("    %4d: %s\n", instr.PC, instr.Text))
		}
		for _, ex := range m.Code.ExceptionTable {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("    exception: try [%d,%d) -> %d (catch cp#%d)",
				ex.StartPC, ex.EndPC, ex.HandlerPC, ex.CatchType)) + "\n")
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func describeEntry(e classfile.Entry) string {
	switch v := e.(type) {
	case classfile.Utf8Entry:
		return fmt.Sprintf("Utf8 %q", string(v.Bytes))
	case classfile.IntegerEntry:
		return fmt.Sprintf("Integer %d", v.Value)
	case classfile.FloatEntry:
		return fmt.Sprintf("Float %s", strconv.FormatFloat(float64(v.Value), 'g', -1, 32))
	case classfile.LongEntry:
		return fmt.Sprintf("Long %d", v.Value)
	case classfile.DoubleEntry:
		return fmt.Sprintf("Double %s", strconv.FormatFloat(v.Value, 'g', -1, 64))
	case classfile.ClassEntry:
		return fmt.Sprintf("Class %s", v.ResolvedName)
	case classfile.StringEntry:
		return fmt.Sprintf("String %q", v.Resolved)
	case classfile.NameAndTypeEntry:
		return fmt.Sprintf("NameAndType %s:%s", v.ResolvedName, v.ResolvedDesc)
	case classfile.FieldrefEntry:
		return fmt.Sprintf("Fieldref %s.%s", v.ResolvedClassName, v.ResolvedNameType)
	case classfile.MethodrefEntry:
		return fmt.Sprintf("Methodref %s.%s", v.ResolvedClassName, v.ResolvedNameType)
	case classfile.InterfaceMethodrefEntry:
		return fmt.Sprintf("InterfaceMethodref %s.%s", v.ResolvedClassName, v.ResolvedNameType)
	default:
		return fmt.Sprintf("tag=%v", e.Tag())
	}
}

func accessFlagsString(flags classfile.AccessFlags, isClass bool) string {
	var names []string
	check := func(bit classfile.AccessFlags, name string) {
		if flags.Has(bit) {
			names = append(names, name)
		}
	}
	check(classfile.AccPublic, "public")
	check(classfile.AccPrivate, "private")
	check(classfile.AccProtected, "protected")
	check(classfile.AccStatic, "static")
	check(classfile.AccFinal, "final")
	if isClass {
		check(classfile.AccSuper, "super")
	} else {
		check(classfile.AccSynchronized, "synchronized")
	}
	check(classfile.AccNative, "native")
	check(classfile.AccAbstract, "abstract")
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, " ")
}
