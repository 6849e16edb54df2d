package main

import (
	"context"
	"log"
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/quietwire/mdnsd/src/mdnsd/engine"
	"github.com/quietwire/mdnsd/src/mdnsd/model"
)

func main() {
	ctx := context.Background()

	e := engine.New(
		engine.UseLogger(logging.DebugLogger),
	)

	if err := e.SetHostname(ctx, "sandbox"); err != nil {
		log.Fatal(err)
	}

	if err := e.AddService(ctx, &model.Service{
		ServiceType:  "_http",
		Protocol:     "_tcp",
		InstanceName: "sandbox web",
		Port:         8080,
		Text:         model.TXTPairs{{Key: "path", Value: []byte("/"), HasValue: true}},
	}); err != nil {
		log.Fatal(err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		log.Fatal(err)
	}

	if err := e.EnableIPv4(ctx, ifaces); err != nil {
		log.Fatal(err)
	}
	if err := e.EnableIPv6(ctx, ifaces); err != nil {
		log.Fatal(err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
