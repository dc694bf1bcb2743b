package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/client"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/logging"
)

// commandFunc runs one client command against the coordinator's
// MetadataClient, given its positional args (command name excluded).
type commandFunc func(meta *client.MetadataClient, log zerolog.Logger, args []string) error

var commands = map[string]struct {
	handler commandFunc
	usage   string
}{
	"upload":   {handleUpload, "upload <local_path> <remote_filename>"},
	"download": {handleDownload, "download <remote_filename> <local_path>"},
	"delete":   {handleDelete, "delete <remote_filename>"},
	"check":    {handleCheck, "check <remote_filename>"},
	"list":     {handleList, "list"},
	"nodes":    {handleNodes, "nodes"},
	"help":     {handleHelp, "help"},
}

func main() {
	server := flag.String("server", "127.0.0.1", "Coordinator IP address")
	port := flag.Int("port", 8080, "Coordinator port")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmdName := args[0]
	if cmdName == "--help" || cmdName == "-h" {
		cmdName = "help"
	}

	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "client: unknown command %q\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	log := logging.New("client")
	meta := client.NewMetadataClient(*server, *port)

	if cmdName != "help" {
		if err := meta.TestConnection(); err != nil {
			fmt.Fprintf(os.Stderr, "client: cannot reach coordinator at %s:%d: %v\n", *server, *port, err)
			os.Exit(1)
		}
	}

	if err := cmd.handler(meta, log, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func handleUpload(meta *client.MetadataClient, log zerolog.Logger, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", "upload <local_path> <remote_filename>")
	}
	orch := client.NewUploadOrchestrator(meta, log)
	if err := orch.Upload(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("uploaded %s as %s\n", args[0], args[1])
	return nil
}

func handleDownload(meta *client.MetadataClient, log zerolog.Logger, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", "download <remote_filename> <local_path>")
	}
	orch := client.NewDownloadOrchestrator(meta, log)
	if err := orch.Download(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("downloaded %s to %s\n", args[0], args[1])
	return nil
}

func handleDelete(meta *client.MetadataClient, _ zerolog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", "delete <remote_filename>")
	}
	if err := meta.DeleteFile(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func handleCheck(meta *client.MetadataClient, _ zerolog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", "check <remote_filename>")
	}
	co := client.NewCheckOrchestrator(meta)
	results, err := co.Check(args[0])
	if err != nil {
		return err
	}
	for _, r := range results {
		status := "MISSING"
		if r.Present {
			status = "EXISTS"
		}
		fmt.Printf("chunk %d (%s) on %s: %s\n", r.ChunkIndex, r.ChunkID, r.NodeID, status)
	}
	return nil
}

func handleList(meta *client.MetadataClient, _ zerolog.Logger, _ []string) error {
	files, err := meta.ListFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("%s (%d bytes)\n", f.Filename, f.TotalSize)
	}
	fmt.Printf("%d file(s)\n", len(files))
	return nil
}

func handleNodes(meta *client.MetadataClient, _ zerolog.Logger, _ []string) error {
	nodes, err := meta.ListNodes()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		active := "inactive"
		if n.IsActive {
			active = "active"
		}
		fmt.Printf("%s %s:%d free=%d %s\n", n.NodeID, n.IPAddress, n.Port, n.FreeSpace, active)
	}
	fmt.Printf("%d node(s)\n", len(nodes))
	return nil
}

func handleHelp(_ *client.MetadataClient, _ zerolog.Logger, _ []string) error {
	printUsage()
	return nil
}

func printUsage() {
	fmt.Println("usage: client --server <ip> --port <p> <command> ...")
	fmt.Println()
	fmt.Println("commands:")
	for _, usage := range []string{
		"upload <local_path> <remote_filename>",
		"download <remote_filename> <local_path>",
		"delete <remote_filename>",
		"check <remote_filename>",
		"list",
		"nodes",
		"help",
	} {
		fmt.Printf("  %s\n", usage)
	}
}
