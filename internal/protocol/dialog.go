package protocol

import (
	"fmt"
	"strings"
)

// Dialog builds the pipe-delimited dialog markup sent with OnDialogRequest.
type Dialog struct {
	b strings.Builder
}

// NewDialog starts a dialog with the default text colour.
func NewDialog() *Dialog {
	d := &Dialog{}
	d.line("set_default_color|`o")
	return d
}

func (d *Dialog) line(s string) *Dialog {
	d.b.WriteString(s)
	d.b.WriteByte('\n')
	return d
}

// LabelWithIcon adds a big label with an item icon.
func (d *Dialog) LabelWithIcon(text string, itemID int) *Dialog {
	return d.line(fmt.Sprintf("add_label_with_icon|big|%s|left|%d|", text, itemID))
}

// Text adds a small text line.
func (d *Dialog) Text(text string) *Dialog {
	return d.line("add_textbox|" + text + "|left|")
}

// Spacer adds a small spacer.
func (d *Dialog) Spacer() *Dialog {
	return d.line("add_spacer|small|")
}

// Button adds a button.
func (d *Dialog) Button(name, label string) *Dialog {
	return d.line("add_button|" + name + "|" + label + "|noflags|0|0|")
}

// ItemPicker adds an item picker.
func (d *Dialog) ItemPicker(name, label, hint string) *Dialog {
	return d.line("add_item_picker|" + name + "|" + label + "|" + hint + "|")
}

// TextInput adds a text input.
func (d *Dialog) TextInput(name, label, value string, max int) *Dialog {
	return d.line(fmt.Sprintf("add_text_input|%s|%s|%s|%d|", name, label, value, max))
}

// Checkbox adds a checkbox.
func (d *Dialog) Checkbox(name, label string, checked bool) *Dialog {
	v := 0
	if checked {
		v = 1
	}
	return d.line(fmt.Sprintf("add_checkbox|%s|%s|%d", name, label, v))
}

// Embed adds hidden data returned with the dialog.
func (d *Dialog) Embed(key string, value any) *Dialog {
	return d.line(fmt.Sprintf("embed_data|%s|%v", key, value))
}

// End closes the dialog under name.
func (d *Dialog) End(name, cancel, ok string) string {
	d.line("end_dialog|" + name + "|" + cancel + "|" + ok + "|")
	return d.b.String()
}
