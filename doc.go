// Package adsoap is a client-side call layer for XML/SOAP APIs.
//
// It turns native nested data into ordered, polymorphically typed SOAP
// envelopes, sends them over HTTPS while capturing the wire traffic, and
// parses responses back into native data. It also manages an expiring
// auth token and the per-session usage counters the server reports.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  client/          Calls, session state, config          │
//	├─────────────────────────────────────────────────────────┤
//	│  soap/            Envelope, request header, faults      │
//	│  soap/auth/       Auth token, login, HTTP authenticators│
//	│  soap/transport/  HTTP and dump backends, wire capture  │
//	├─────────────────────────────────────────────────────────┤
//	│  codec/           Values, type order table, XML codec   │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	cfg, err := client.LoadConfig("adsoap.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := client.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	page, err := c.Get(ctx, "CampaignService", codec.MustFromAny(map[string]any{
//	    "fields": []any{"Id", "Name"},
//	}))
//
// See cmd/soapcall for a command-line example.
package adsoap
