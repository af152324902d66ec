package main

import "bookshare/cmd/bookshare-admin/command"

func main() {
	command.Execute()
}
