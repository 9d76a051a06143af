package coord

// GetSignal is GetW with the zk.Event detail erased down to a single
// close-on-fire channel — every caller so far (pkg/entity) only needs to
// know that *something* changed and re-reads; it never inspects event
// type or state.
func (c *Client) GetSignal(path string) ([]byte, <-chan struct{}, error) {
	data, events, err := c.GetW(path)
	if err != nil {
		return nil, nil, err
	}
	return data, toSignal(events), nil
}

// ChildrenSignal is ChildrenW, erased the same way as GetSignal.
func (c *Client) ChildrenSignal(path string) ([]string, <-chan struct{}, error) {
	children, events, err := c.ChildrenW(path)
	if err != nil {
		return nil, nil, err
	}
	return children, toSignal(events), nil
}

func toSignal[T any](events <-chan T) <-chan struct{} {
	sig := make(chan struct{}, 1)
	go func() {
		<-events
		sig <- struct{}{}
		close(sig)
	}()
	return sig
}
