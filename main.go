/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ikasoba/notesync/cmd"

func main() {
	cmd.Execute()
}
