package main

import "github.com/dnisha/aws-instance-schedular/cmd"

func main() {
	cmd.Execute()
}
