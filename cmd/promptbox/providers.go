package main

// Launcher blank imports: each import registers the terminal launchers it
// implements with the launcher port.

import (
	_ "github.com/Strob0t/promptbox/internal/adapter/terminal"
)
