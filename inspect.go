package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func newInspectCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a message file and print its header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return oops.Wrapf(err, "reading %s", args[0])
			}
			var obj *transport.Object
			if raw {
				obj, err = transport.NewSerializedObject(data, nil)
			} else {
				obj, err = transport.ReadFrame(bytes.NewReader(data), cfg.Stream)
			}
			if err != nil {
				return oops.Wrapf(err, "decoding %s", args[0])
			}
			m := message.FromTransport(obj)
			defer m.Reset()
			return renderMessage(cmd.OutOrStdout(), args[0], m)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "file holds message bytes without a frame length prefix")
	return cmd
}

// renderMessage prints m's header fields and a hex dump of its payload.
func renderMessage(w io.Writer, title string, m *message.Message) error {
	if err := m.Validate(); err != nil {
		fmt.Fprintln(w, errStyle.Render("invalid header: "+err.Error()))
		return err
	}
	h := m.Header()
	rows := [][2]string{
		{"version", strconv.FormatUint(uint64(h.Version), 10)},
		{"num_bytes", strconv.FormatUint(uint64(h.NumBytes), 10)},
		{"name", strconv.FormatUint(uint64(h.Name), 10)},
		{"flags", header.FlagNames(h.Flags)},
	}
	if h.Version >= header.Version1 {
		rows = append(rows, [2]string{"request_id", strconv.FormatUint(h.RequestID, 10)})
	}
	payload := m.Payload()
	rows = append(rows,
		[2]string{"payload_bytes", strconv.Itoa(len(payload))},
		[2]string{"interface_ids", formatInterfaceIDs(m.PayloadInterfaceIDs())},
		[2]string{"handles", strconv.Itoa(m.Handles().Len())},
	)

	lines := []string{titleStyle.Render(title)}
	for _, row := range rows {
		lines = append(lines, keyStyle.Render(row[0])+valueStyle.Render(row[1]))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	if len(payload) > 0 {
		fmt.Fprint(w, hex.Dump(payload))
	}
	return nil
}

func formatInterfaceIDs(ids header.InterfaceIDs) string {
	if ids.Len() == 0 {
		return "none"
	}
	var b bytes.Buffer
	for i := 0; i < ids.Len(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if id := ids.At(i); header.IsValidInterfaceID(id) {
			fmt.Fprintf(&b, "%#x", id)
		} else {
			b.WriteString("invalid")
		}
	}
	return b.String()
}
