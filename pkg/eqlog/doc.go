// Package eqlog provides parsing and monitoring of EverQuest log files for
// DKP bookkeeping.
//
// This package allows you to:
//   - Classify log lines into attendance, kill, loot, DKP spent and raid
//     roster entries
//   - Follow the newest character log in real time
//   - Track live loot auctions and their bids (see package auction)
//
// # Basic Usage
//
// To monitor EverQuest logs in real time:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	entries, errs, err := eqlog.Watch(ctx, eqlog.WithCharacter("Krizzy"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    select {
//	    case e, ok := <-entries:
//	        if !ok {
//	            return
//	        }
//	        switch e.Kind {
//	        case eqlog.KindDkpSpent:
//	            fmt.Printf("%s spent %d on %s\n", e.Character, e.Amount, e.ItemName)
//	        case eqlog.KindJoinedRaid:
//	            fmt.Printf("%s joined\n", e.Character)
//	        }
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Printf("error: %v", err)
//	    }
//	}
//
// To parse an existing file:
//
//	for e, err := range eqlog.ParseFile(ctx, path) {
//	    if err != nil {
//	        break
//	    }
//	    // process e
//	}
//
// # Platform Support
//
// Log directories are auto-detected from standard Windows install
// locations. Set EQLOG_LOGDIR or use WithLogDir elsewhere.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Daybreak Game Company.
package eqlog
