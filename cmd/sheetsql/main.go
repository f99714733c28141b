// Command sheetsql loads spreadsheet files into a SQL database and
// inspects or exports the result.
package main

import (
	"os"

	"github.com/nao1215/sheetsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
