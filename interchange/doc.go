// Package interchange reads and writes decision requirements graphs.
//
// Two formats are supported. DecodeXML and EncodeXML use DMN 1.3 XML, the
// format written by DMN modelling tools. DecodeYAML and EncodeYAML use a
// compact YAML form of Document, meant to be written by hand:
//
//	name: discounts
//	nodes:
//	  - id: i_status
//	    name: CustomerStatus
//	    kind: inputData
//	  - id: d_discount
//	    name: Discount
//	    kind: decision
//	    table:
//	      hitPolicy: U
//	      inputs:
//	        - expression: CustomerStatus
//	      outputs:
//	        - name: Discount
//	      rules:
//	        - when: ['"Silver"']
//	          then: ["0.05"]
//	edges:
//	  - type: information
//	    from: i_status
//	    to: d_discount
//
// Decoded graphs are not validated; call Validate, or let the engine do it
// on first evaluation. Graph options, such as additional expression
// languages, are passed through to the new graph.
//
// The XML reader takes the elements a graph can hold and skips the rest,
// including diagram information. Arguments of business knowledge model
// invocations are written as binding elements in the extension elements
// of the knowledge requirement.
package interchange
