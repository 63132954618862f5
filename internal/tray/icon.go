package tray

import _ "embed"

//go:embed icons/keyboard.png
var keyboardIcon []byte

//go:embed icons/keyboard_disabled.png
var keyboardDisabledIcon []byte
