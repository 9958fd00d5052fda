package p2p

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.cfg.Network.Accept()
		if err != nil {
			select {
			case <-n.ctx.Done():
			default:
				n.cfg.Logger.WithError(err).Warn("accept failed")
			}
			return
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}
