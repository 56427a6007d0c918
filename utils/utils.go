package utils

import (
	"fmt"
	"os"
	"strings"
)

// ParseArguments parses command line arguments into a map.
// Supports --key=value and bare --flag forms.
func ParseArguments() map[string]string {
	args := make(map[string]string)

	for _, arg := range os.Args[1:] {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if key, value, found := strings.Cut(arg, "="); found {
			args[key] = value
		} else {
			args[arg] = ""
		}
	}

	return args
}

// PrintUsage displays usage information.
func PrintUsage() {
	fmt.Println("FishTank - hand-drawn fish aquarium")
	fmt.Println("\nUsage:")
	fmt.Printf("  %s [options]\n", os.Args[0])
	fmt.Println("\nOptions:")
	fmt.Println("  --config=PATH       Configuration file (YAML)")
	fmt.Println("  --photos=DIR        Directory watched for photographed templates (default ./photos)")
	fmt.Println("  --db=PATH           Photo-record database path (default ./fishtank.db)")
	fmt.Println("  --status-addr=ADDR  Enable the HTTP status server on ADDR (e.g. 127.0.0.1:8750)")
	fmt.Println("  --debug             Enable debug logging")
	fmt.Println("  --logfile=PATH      Also write logs to PATH")
	fmt.Println("\nKeys:")
	fmt.Println("  Left/Right arrows   Switch scene")
	fmt.Println("  ESC                 Quit")
}
