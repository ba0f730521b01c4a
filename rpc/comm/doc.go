// Package comm is the public entry point of dComm: Listen and Connect take a
// transport URI and dispatch to the matching transport.
//
// Usage:
//
//	rt := runtime.New()
//	defer rt.Close()
//
//	listener, _ := comm.Listen(rt, "tcp://127.0.0.1", func(ctx context.Context, c transport.Comm) error {
//		for {
//			msg, err := c.Read(ctx)
//			if err != nil {
//				return err // a closed comm is a normal end
//			}
//			if err := c.Write(ctx, msg); err != nil {
//				return err
//			}
//		}
//	})
//	_ = listener.Start(ctx)
//
//	c, _ := comm.Connect(ctx, rt, listener.ContactAddress(), comm.WithCompression("zstd"))
//	defer c.Close()
//
// Supported schemes are tcp (default), unix, ws and inproc.
package comm
