package main

import (
	"os"

	"github.com/spf13/viper"
)

func main() {
	if err := rootCommand(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}
