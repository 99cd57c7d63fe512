// Package mongo opens MongoDB connections with retry and exposes a readiness
// probe. The notification template catalogue is the main consumer.
//
//	db, err := mongo.ConnectDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
