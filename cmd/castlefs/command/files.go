package command

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"castlefs/internal/protocol"
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a remote text file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		file, err := session.ReadFile(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(file.Content)
		if !strings.HasSuffix(file.Content, "\n") {
			fmt.Println()
		}
		return nil
	},
}

var readBinCmd = &cobra.Command{
	Use:   "read-bin <path>",
	Short: "Fetch a remote file as binary and write it to stdout or --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		file, err := session.ReadBinaryFile(context.Background(), args[0])
		if err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(file.Data)
		if err != nil {
			return fmt.Errorf("agent returned invalid base64: %w", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			_, err = os.Stdout.Write(raw)
			return err
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes (%s) to %s\n", file.Size, file.MimeType, out)
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Write a remote file (content from argument or stdin)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content string
		if len(args) == 2 {
			content = args[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			content = string(data)
		}

		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.WriteFile(context.Background(), args[0], content); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete a remote file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.DeleteFile(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted %s\n", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List the remote tree (default: root)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		tree, err := session.ListDirectory(context.Background(), path)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			data, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		printTree(tree, 0)
		return nil
	},
}

func printTree(node *protocol.DirectoryTree, depth int) {
	name := node.Name
	if name == "" {
		name = "/"
	}
	suffix := ""
	if node.Type == protocol.EntryDirectory {
		suffix = "/"
	}
	fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), name, suffix)
	for i := range node.Children {
		printTree(&node.Children[i], depth+1)
	}
}

func init() {
	readBinCmd.Flags().String("out", "", "write decoded bytes to this local file")
	listCmd.Flags().Bool("json", false, "print the raw tree as JSON")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readBinCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
}
