// Package webhook signs outbound HTTP requests with an HMAC-SHA256 over
// the request timestamp and body, and verifies such signatures on the
// receiving side. The push deliverer uses it to authenticate calls to the
// push gateway.
//
//	sig, err := webhook.Sign(secret, notificationID, body, time.Now())
//	if err != nil {
//		return err
//	}
//	sig.Apply(req.Header)
//
// A receiver parses and checks the headers:
//
//	sig, err := webhook.Parse(r.Header)
//	if err == nil {
//		err = webhook.Verify(secret, body, sig, 5*time.Minute, time.Now())
//	}
package webhook
