// Package flowmailer provides the types, interfaces and helpers of the
// Flowmailer REST API client.
//
// # Overview
//
// The flowmailer package defines the models (SubmitMessage, Message, Flow,
// SenderDomain, Template), the resource client interfaces (MessagesClient,
// FlowsClient, ...) and the error types returned by every call. The concrete
// implementation is provided by the fmclient package, which wires the
// transport, the OAuth2 client_credentials authentication and the request
// pipeline. Most consumers import fmclient to construct a client and then
// use the interfaces exposed here.
//
// Getting a client
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
//	  cli, err := fmclient.New(ctx, &flowmailer.Config{
//	    AccountID:    "12345",
//	    ClientID:     "client",
//	    ClientSecret: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  id, err := cli.Messages().Submit(ctx, &flowmailer.SubmitMessage{
//	    MessageType:      flowmailer.MessageTypeEmail,
//	    SenderAddress:    "info@example.com",
//	    RecipientAddress: "someone@example.com",
//	    Subject:          "Hello",
//	    Text:             "Hello world",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = id
//	}
//
// # Ranges and pagination
//
// List endpoints page with the reference range convention: the request
// carries "Range: items=<reference>:<count>" and the server answers with a
// "next-range" header holding the range of the next page. Page.NextRange
// exposes it, ReferenceRangeIterator and FetchAll follow it:
//
//	it := flowmailer.NewReferenceRangeIterator(ctx, flowmailer.NewReferenceRange(100),
//	  func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[flowmailer.Message], error) {
//	    return cli.Messages().List(ctx, &flowmailer.MessageListParams{Range: rng})
//	  })
//	for it.HasNext() {
//	  msg, err := it.Next()
//	  if err != nil { break }
//	  _ = msg
//	}
//
// # Errors
//
// 400 and 403 responses become a chain of *ValidationError, 401 an
// *OAuthError, and everything else a *ServerError. An exhausted
// authentication budget is reported as *AuthFailure. Helpers such as
// IsNotFound, IsUnauthorized and IsValidation branch on common cases.
//
// # Token caching
//
// Bearer tokens are stored in a Cache. MemoryCache is the default;
// NATSKVCache shares tokens between processes through a JetStream key/value
// bucket. CacheConfig and CacheBuilder select the backend.
package flowmailer
