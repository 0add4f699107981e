// Command arm2ir translates an ARMv7-A ROM image into an SSA IR module
// and writes the emitted object to disk. It is the thin CLI shell spec.md
// §1 places outside the translator's core, wired the way the teacher's
// cmd/vm and cmd/interp wire theirs: stdlib flag parsing, log.Fatal on
// any failure, defer-guarded file handles.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/bassosimone/armxlate/pkg/romimage"
	"github.com/bassosimone/armxlate/pkg/xlate"
)

func main() {
	log.SetFlags(0)
	verify := flag.Bool("verify", false, "build the module in verify mode")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatal("usage: arm2ir [-verify] <input-rom> <output-object> [debug-dump]")
	}
	inputPath, outputPath := args[0], args[1]
	var debugDumpPath string
	if len(args) > 2 {
		debugDumpPath = args[2]
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatal(err)
	}

	rom, err := romimage.Load(data)
	if err != nil {
		log.Fatal(err)
	}

	outFp, err := os.Create(outputPath)
	if err != nil {
		log.Fatal(err)
	}
	defer outFp.Close()

	cfg := xlate.Config{ModuleName: inputPath, Verify: *verify}
	module, err := xlate.Run(cfg, rom, outFp)
	if err != nil {
		log.Fatal(err)
	}

	if debugDumpPath != "" {
		dumpFp, err := os.Create(debugDumpPath)
		if err != nil {
			log.Fatal(err)
		}
		defer dumpFp.Close()
		for _, blk := range module.Blocks() {
			log.SetOutput(dumpFp)
			log.Printf("%#08x\n", blk.Address())
		}
		log.SetOutput(os.Stderr)
	}

	log.Printf("arm2ir: decoded %d blocks into %d dispatch functions\n", len(module.Blocks()), module.ColorCount())
}
