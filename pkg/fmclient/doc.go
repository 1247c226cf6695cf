// Package fmclient is the entry point for constructing a Flowmailer API
// client that implements the flowmailer.Client interface.
//
// It layers configuration defaults, the HTTP pipeline and client_credentials
// authentication on top of the resource interfaces and types defined in the
// flowmailer package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/flowmailer/flowmailer-go/pkg/flowmailer"
//	  "github.com/flowmailer/flowmailer-go/pkg/fmclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  fm, err := fmclient.NewWithClientCredentials(ctx, "1234", "client-id", "client-secret")
//	  if err != nil { log.Fatal(err) }
//
//	  id, err := fm.Messages().Submit(ctx, &flowmailer.SubmitMessage{
//	    MessageType:      flowmailer.MessageTypeEmail,
//	    SenderAddress:    "noreply@example.com",
//	    RecipientAddress: "user@example.com",
//	    Subject:          "Welcome",
//	    Text:             "Hello!",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  log.Printf("submitted message %s", id)
//	}
//
// Endpoints without a scheme get "https://"; trailing slashes are removed.
package fmclient
