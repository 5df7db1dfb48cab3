package main

import (
	"fmt"
	"os"
	"time"

	"rocket_go/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
  ____            _        _     _____ _ _       _     _
 |  _ \ ___   ___| | _____| |_  |  ___| (_) __ _| |__ | |_
 | |_) / _ \ / __| |/ / _ \ __| | |_  | | |/ _' | '_ \| __|
 |  _ < (_) | (__|   <  __/ |_  |  _| | | | (_| | | | | |_
 |_| \_\___/ \___|_|\_\___|\__| |_|   |_|_|\__, |_| |_|\__|
                                           |___/  COMPUTER v1.0
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
