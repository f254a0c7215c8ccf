package main

import (
	"fmt"

	"github.com/termchat/termchat/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
