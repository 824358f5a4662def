// Package watcher watches a spool directory for dropped feed documents and
// subscription lists.
//
// Events are debounced so that a file written in several chunks is reported
// once, after the writer went quiet:
//
//	w, err := watcher.New(watcher.Options{Debounce: 500 * time.Millisecond})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, spoolDir)
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Kind is KindFeed or KindList
//	    }
//	}
package watcher
