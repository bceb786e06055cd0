package main

import "github.com/KaramelBytes/yearlens/cmd"

func main() {
	cmd.Execute()
}
